package blender

import "testing"

func frame(values ...byte) *[UniverseSize]byte {
	var f [UniverseSize]byte
	copy(f[:], values)
	return &f
}

func TestBlend_ProjectOnlyIgnoresRecording(t *testing.T) {
	a := frame(10, 20, 30)
	r := frame(99, 99, 99)

	out := Blend(a, r, ModeProjectOnly)
	if out[0] != 10 || out[1] != 20 || out[2] != 30 {
		t.Fatalf("got %v, want [10 20 30 ...]", out[:3])
	}
}

func TestBlend_RecordingOnlyIgnoresProject(t *testing.T) {
	a := frame(10, 20, 30)
	r := frame(99, 99, 99)

	out := Blend(a, r, ModeRecordingOnly)
	if out[0] != 99 {
		t.Fatalf("got %v, want [99 ...]", out[:3])
	}
}

// TestBlend_RecordingPriorityScenario mirrors the literal end-to-end
// scenario: project [100,100,100,...], recording [0,200,0,...].
func TestBlend_RecordingPriorityScenario(t *testing.T) {
	p := frame(100, 100, 100)
	r := frame(0, 200, 0)

	out := Blend(p, r, ModeRecordingPriority)
	if out[0] != 100 || out[1] != 200 || out[2] != 100 {
		t.Fatalf("recording_priority: got %v, want [100 200 100]", out[:3])
	}

	out = Blend(p, r, ModeBlend)
	if out[0] != 100 || out[1] != 200 || out[2] != 100 {
		t.Fatalf("blend: got %v, want [100 200 100]", out[:3])
	}

	out = Blend(p, r, ModeRecordingOnly)
	if out[0] != 0 || out[1] != 200 || out[2] != 0 {
		t.Fatalf("recording_only: got %v, want [0 200 0]", out[:3])
	}
}

func TestBlend_NilOperandsTreatedAsZero(t *testing.T) {
	out := Blend(nil, nil, ModeBlend)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("channel %d = %d, want 0", i, v)
		}
	}
}

func TestBlend_Laws(t *testing.T) {
	a := frame(5, 10, 15)
	zeros := frame()

	if out := Blend(a, zeros, ModeProjectOnly); out != *a {
		t.Errorf("blend(a, zeros, project_only) != a")
	}
	b := frame(1, 2, 3)
	if out := Blend(zeros, b, ModeRecordingOnly); out != *b {
		t.Errorf("blend(zeros, b, recording_only) != b")
	}

	ab := Blend(a, b, ModeBlend)
	ba := Blend(b, a, ModeBlend)
	if ab != ba {
		t.Errorf("blend(a,b,blend) != blend(b,a,blend): HTP should commute")
	}
}
