package recording

import (
	"encoding/json"
	"testing"
)

func TestAddFrame_ExtendsDurationAndTrimEnd(t *testing.T) {
	r := New("test", 0, 40)
	r.AddFrame(0, []int{1, 2, 3})
	r.AddFrame(500, []int{4, 5, 6})

	if r.DurationMs != 500 {
		t.Errorf("DurationMs = %d, want 500", r.DurationMs)
	}
	if r.TrimEndMs != 500 {
		t.Errorf("TrimEndMs = %d, want 500", r.TrimEndMs)
	}
}

func TestFrameAt_LatestAtOrBeforeTime(t *testing.T) {
	r := New("test", 0, 40)
	r.AddFrame(0, []int{1})
	r.AddFrame(100, []int{2})
	r.AddFrame(200, []int{3})

	f, ok := r.FrameAt(150)
	if !ok || f.Channels[0] != 2 {
		t.Fatalf("FrameAt(150) = %+v, ok=%v, want channel 2", f, ok)
	}

	f, ok = r.FrameAt(0)
	if !ok || f.Channels[0] != 1 {
		t.Fatalf("FrameAt(0) = %+v, ok=%v, want channel 1", f, ok)
	}
}

func TestFrameAt_RespectsTrimStartOffset(t *testing.T) {
	r := New("test", 0, 40)
	r.AddFrame(0, []int{1})
	r.AddFrame(100, []int{2})
	r.AddFrame(200, []int{3})
	r.TrimStartMs = 100

	// time_ms=50 + trim_start_ms=100 = adjusted 150 -> latest frame <= 150 is t=100 -> channel 2
	f, ok := r.FrameAt(50)
	if !ok || f.Channels[0] != 2 {
		t.Fatalf("FrameAt(50) with trim_start=100 = %+v, ok=%v, want channel 2", f, ok)
	}
}

func TestChannelsAt_PastTrimmedDurationHoldsLastFrame(t *testing.T) {
	r := New("test", 0, 40)
	r.AddFrame(0, []int{1})
	r.AddFrame(100, []int{2})
	r.TrimEndMs = 100

	got := r.ChannelsAt(9999)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("ChannelsAt(9999) = %v, want [2] (last frame held)", got)
	}
}

func TestChannelsAt_EmptyRecordingReturnsNil(t *testing.T) {
	r := New("test", 0, 40)
	if got := r.ChannelsAt(0); got != nil {
		t.Fatalf("ChannelsAt on empty recording = %v, want nil", got)
	}
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	r := New("My Sequence", 3, 40)
	r.AddFrame(0, []int{0, 0, 0})
	r.AddFrame(40, []int{10, 20, 30})
	r.SourceIP = "10.0.0.5"
	r.TrimStartMs = 10
	r.TrimEndMs = 40

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var loaded Recording
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if loaded.Name != r.Name || loaded.Universe != r.Universe || loaded.FPS != r.FPS {
		t.Errorf("loaded = %+v, want matching name/universe/fps of %+v", loaded, r)
	}
	if loaded.TrimStartMs != 10 || loaded.TrimEndMs != 40 {
		t.Errorf("loaded trim = [%d,%d], want [10,40]", loaded.TrimStartMs, loaded.TrimEndMs)
	}
	if len(loaded.Frames) != 2 || loaded.Frames[1].Channels[2] != 30 {
		t.Fatalf("loaded frames = %+v, want 2 frames with second frame channel 3 = 30", loaded.Frames)
	}
}

func TestMarshalUnmarshal_EmptyRecordingRoundTrips(t *testing.T) {
	r := New("empty", 0, 40)

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var loaded Recording
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if len(loaded.Frames) != 0 {
		t.Errorf("loaded.Frames = %v, want empty", loaded.Frames)
	}
}

func TestUnmarshal_PreservesUnknownFields(t *testing.T) {
	raw := `{"name":"n","version":"1.0","recorded_at":"","duration_ms":0,"fps":40,"universe":0,"source_ip":"","trim_start_ms":0,"trim_end_ms":0,"frames":[],"console_model":"Hog4"}`

	var r Recording
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if r.Extra["console_model"] != "Hog4" {
		t.Fatalf("Extra = %v, want console_model=Hog4 preserved", r.Extra)
	}

	data, err := json.Marshal(&r)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var roundTripped map[string]any
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("Unmarshal(roundTripped) error: %v", err)
	}
	if roundTripped["console_model"] != "Hog4" {
		t.Errorf("round-tripped document dropped unknown field console_model")
	}
}
