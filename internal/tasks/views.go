package tasks

import "github.com/SuLition/CatParse/internal/model"

// copyTasks returns value copies of the tasks matching keep; callers hold the lock
func (s *Store) copyTasks(keep func(*model.Task) bool) []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if keep == nil || keep(t) {
			out = append(out, *t)
		}
	}
	return out
}

func isActive(t *model.Task) bool { return t.Status.IsActive() }

// Tasks returns all tasks, newest first
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTasks(nil)
}

// ActiveTasks returns the pending and running tasks
func (s *Store) ActiveTasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTasks(isActive)
}

// HasActiveTasks reports whether any task is pending or running
func (s *Store) HasActiveTasks() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if isActive(t) {
			return true
		}
	}
	return false
}

// TaskCount returns the number of listed tasks
func (s *Store) TaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// IsMinimized reports whether the task panel is minimized
func (s *Store) IsMinimized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.minimized
}

// ShowTaskPanel reports whether the task panel is shown
func (s *Store) ShowTaskPanel() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.showPanel
}

// Get returns a copy of the task with id
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.find(id); t != nil {
		return *t, true
	}
	return model.Task{}, false
}

// Snapshot returns the whole state at one point in time
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) snapshot() Snapshot {
	active := s.copyTasks(isActive)
	return Snapshot{
		Tasks:          s.copyTasks(nil),
		ActiveTasks:    active,
		HasActiveTasks: len(active) > 0,
		TaskCount:      len(s.tasks),
		ShowTaskPanel:  s.showPanel,
		IsMinimized:    s.minimized,
	}
}

// Subscribe registers fn to receive a snapshot after every change. Calls are
// never concurrent and the last call always carries the latest state; changes
// made during a call may be folded into one snapshot. fn runs on a goroutine
// that changed the store and must not block. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// publish delivers a fresh snapshot to every subscriber; callers must not
// hold s.mu. Only one goroutine delivers at a time. A change made while it
// does marks the state pending, and the delivering goroutine takes another
// snapshot before it returns.
func (s *Store) publish() {
	s.pubMu.Lock()
	s.pending = true
	if s.publishing {
		s.pubMu.Unlock()
		return
	}
	s.publishing = true
	s.pubMu.Unlock()

	done := false
	defer func() {
		if !done {
			s.pubMu.Lock()
			s.publishing = false
			s.pubMu.Unlock()
		}
	}()

	for {
		s.pubMu.Lock()
		if !s.pending {
			s.publishing = false
			done = true
			s.pubMu.Unlock()
			return
		}
		s.pending = false
		s.pubMu.Unlock()

		s.deliver()
	}
}

func (s *Store) deliver() {
	s.subMu.Lock()
	if len(s.subs) == 0 {
		s.subMu.Unlock()
		return
	}
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
