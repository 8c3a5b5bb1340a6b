package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var dayNames = map[string]bool{
	"sun": true, "mon": true, "tue": true, "wed": true,
	"thu": true, "fri": true, "sat": true,
}

// Scheduler wraps a cron engine to fire a callback according to a
// Schedule: a weekly rule set with date-keyed exceptions. Any mutation to
// the rules, mode or enabled flag rebuilds every cron entry from scratch.
// Rule entries consult the exception list at fire time, so adding or
// removing an exception with empty times only persists it; an exception
// with times also has its own cron entries, which AddException registers
// and RemoveException clears by rebuilding.
type Scheduler struct {
	mu sync.Mutex

	configDir string
	schedule  Schedule

	cron     *cron.Cron
	entryIDs []cron.EntryID

	onTrigger func()
	running   bool
}

// New constructs a Scheduler that persists its configuration under
// configDir and invokes onTrigger (on the cron engine's own goroutine;
// implementations must not block it) whenever a scheduled or continuous
// trigger fires.
func New(configDir string, onTrigger func()) *Scheduler {
	return &Scheduler{
		configDir: configDir,
		schedule:  defaultSchedule(),
		cron:      cron.New(),
		onTrigger: onTrigger,
	}
}

// Start loads the persisted schedule, builds its cron entries, and starts
// the underlying cron engine. Calling Start twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	sched, err := loadSchedule(s.configDir)
	if err != nil {
		return fmt.Errorf("scheduler: load schedule: %w", err)
	}
	s.schedule = sched
	s.rebuildLocked()
	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the cron engine without clearing the in-memory schedule.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// Schedule returns a copy of the current schedule configuration.
func (s *Scheduler) Schedule() Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

// SetSchedule replaces the whole schedule document, persists it, and
// rebuilds every cron entry.
func (s *Scheduler) SetSchedule(sched Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = sched
	return s.persistAndRebuildLocked()
}

// AddRule appends a rule, persists, and rebuilds.
func (s *Scheduler) AddRule(rule ScheduleRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Rules = append(s.schedule.Rules, rule)
	return s.persistAndRebuildLocked()
}

// RemoveRule removes the rule with the given ID, persists, and rebuilds.
// Reports whether a rule with that ID existed.
func (s *Scheduler) RemoveRule(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.schedule.Rules {
		if r.ID == id {
			s.schedule.Rules = append(s.schedule.Rules[:i], s.schedule.Rules[i+1:]...)
			return true, s.persistAndRebuildLocked()
		}
	}
	return false, nil
}

// UpdateRule replaces the rule with the given ID, persists, and rebuilds.
// Reports whether a rule with that ID existed.
func (s *Scheduler) UpdateRule(id string, rule ScheduleRule) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.schedule.Rules {
		if r.ID == id {
			s.schedule.Rules[i] = rule
			return true, s.persistAndRebuildLocked()
		}
	}
	return false, nil
}

// SetMode changes the scheduling mode, persists, and rebuilds.
func (s *Scheduler) SetMode(mode ScheduleMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Mode = mode
	return s.persistAndRebuildLocked()
}

// Enable turns scheduling on, persists, and rebuilds.
func (s *Scheduler) Enable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Enabled = true
	return s.persistAndRebuildLocked()
}

// Disable turns scheduling off, persists, and rebuilds (clearing every
// cron entry).
func (s *Scheduler) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Enabled = false
	return s.persistAndRebuildLocked()
}

// AddException appends a date exception and persists it. It does not
// rebuild cron entries: rule entries consult exceptions at fire-time. An
// exception with times gets its own cron entries added here when the
// schedule is enabled and in scheduled mode.
func (s *Scheduler) AddException(exc ScheduleException) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule.Exceptions = append(s.schedule.Exceptions, exc)
	if err := saveSchedule(s.configDir, s.schedule); err != nil {
		return err
	}
	if len(exc.Times) > 0 && s.schedule.Enabled && s.schedule.Mode == ModeScheduled {
		s.addExceptionEntriesLocked(exc)
	}
	return nil
}

// RemoveException removes the exception for the given date and persists.
// Reports whether an exception for that date existed.
func (s *Scheduler) RemoveException(date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, exc := range s.schedule.Exceptions {
		if exc.Date == date {
			s.schedule.Exceptions = append(s.schedule.Exceptions[:i], s.schedule.Exceptions[i+1:]...)
			if len(exc.Times) > 0 && s.schedule.Mode == ModeScheduled {
				return true, s.persistAndRebuildLocked()
			}
			return true, saveSchedule(s.configDir, s.schedule)
		}
	}
	return false, nil
}

// NextTrigger returns the earliest future fire time among all registered
// cron entries, for dashboards. The second return is false when nothing
// is scheduled.
func (s *Scheduler) NextTrigger() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var earliest time.Time
	found := false
	for _, id := range s.entryIDs {
		entry := s.cron.Entry(id)
		if entry.Valid() && (!found || entry.Next.Before(earliest)) {
			earliest = entry.Next
			found = true
		}
	}
	return earliest, found
}

// TriggersToday reports the effective fire times for the local calendar
// day: an exception for today (if any) wins outright, even an empty one;
// otherwise it is every enabled rule's times for today's weekday, sorted
// and deduplicated.
func (s *Scheduler) TriggersToday() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := time.Now()
	todayISO := today.Format("2006-01-02")
	for _, exc := range s.schedule.Exceptions {
		if exc.Date == todayISO {
			return append([]string(nil), exc.Times...)
		}
	}

	todayDay := dayAbbrev(today.Weekday())
	set := map[string]bool{}
	for _, rule := range s.schedule.Rules {
		if !rule.Enabled {
			continue
		}
		if !containsDay(rule.Days, todayDay) {
			continue
		}
		for _, t := range rule.Times {
			set[t] = true
		}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Scheduler) persistAndRebuildLocked() error {
	if err := saveSchedule(s.configDir, s.schedule); err != nil {
		return err
	}
	s.rebuildLocked()
	return nil
}

// rebuildLocked removes every previously registered cron entry and
// regenerates the entry set from scratch against the current
// mode/rules/exceptions. Caller must hold s.mu.
func (s *Scheduler) rebuildLocked() {
	for _, id := range s.entryIDs {
		s.cron.Remove(id)
	}
	s.entryIDs = nil

	if !s.schedule.Enabled {
		return
	}

	switch s.schedule.Mode {
	case ModeManual:
		return

	case ModeContinuous:
		if s.onTrigger != nil {
			go s.onTrigger()
		}
		return

	case ModeScheduled:
		for _, rule := range s.schedule.Rules {
			if !rule.Enabled {
				continue
			}
			s.addRuleEntriesLocked(rule)
		}
		for _, exc := range s.schedule.Exceptions {
			if len(exc.Times) == 0 {
				continue
			}
			s.addExceptionEntriesLocked(exc)
		}
	}
}

func (s *Scheduler) addRuleEntriesLocked(rule ScheduleRule) {
	dow := cronDayOfWeek(rule.Days)
	if dow == "" {
		return
	}
	for _, t := range rule.Times {
		hour, minute, err := parseHHMM(t)
		if err != nil {
			continue
		}
		spec := fmt.Sprintf("%d %d * * %s", minute, hour, dow)
		id, err := s.cron.AddFunc(spec, s.ruleTrigger(t))
		if err != nil {
			continue
		}
		s.entryIDs = append(s.entryIDs, id)
	}
}

func (s *Scheduler) addExceptionEntriesLocked(exc ScheduleException) {
	for _, t := range exc.Times {
		hour, minute, err := parseHHMM(t)
		if err != nil {
			continue
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		id, err := s.cron.AddFunc(spec, s.exceptionTrigger(exc.Date))
		if err != nil {
			continue
		}
		s.entryIDs = append(s.entryIDs, id)
	}
}

// ruleTrigger fires a rule-time cron entry unless today has an exception:
// an empty-times exception suppresses it, a non-empty one replaces the
// rule's times for today (the exception's own entries fire instead).
func (s *Scheduler) ruleTrigger(timeStr string) func() {
	return func() {
		s.mu.Lock()
		exceptions := s.schedule.Exceptions
		callback := s.onTrigger
		s.mu.Unlock()

		today := time.Now().Format("2006-01-02")
		for _, exc := range exceptions {
			if exc.Date == today {
				return
			}
		}
		if callback != nil {
			callback()
		}
	}
}

// exceptionTrigger fires only on the exception's own date; it is a daily
// cron entry gated by a date check since cron has no one-shot trigger.
func (s *Scheduler) exceptionTrigger(date string) func() {
	return func() {
		if time.Now().Format("2006-01-02") != date {
			return
		}
		s.mu.Lock()
		callback := s.onTrigger
		s.mu.Unlock()
		if callback != nil {
			callback()
		}
	}
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("scheduler: invalid time %q: %w", s, err)
	}
	return hour, minute, nil
}

// cronDayOfWeek converts rule day names into cron's comma-separated
// day-of-week field, dropping any name it doesn't recognize.
func cronDayOfWeek(days []string) string {
	var out []string
	for _, d := range days {
		abbrev := strings.ToLower(d)
		if len(abbrev) > 3 {
			abbrev = abbrev[:3]
		}
		if dayNames[abbrev] {
			out = append(out, abbrev)
		}
	}
	return strings.Join(out, ",")
}

func containsDay(days []string, target string) bool {
	for _, d := range days {
		abbrev := strings.ToLower(d)
		if len(abbrev) > 3 {
			abbrev = abbrev[:3]
		}
		if abbrev == target {
			return true
		}
	}
	return false
}

func dayAbbrev(d time.Weekday) string {
	return [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}[d]
}
