package peerpad

// Verdict is the causal gate's outcome for a remote operation.
type Verdict int

const (
	// VerdictApplied: causal prerequisites were met, the op mutated the document.
	VerdictApplied Verdict = iota
	// VerdictBuffered: the op claims unobserved history and is held for retry.
	// Only returned when Options.MaxPending > 0.
	VerdictBuffered
	// VerdictRejected: the op was dropped. Remote ops racing session teardown,
	// duplicates and causal gaps (with buffering off) all land here; none of
	// them are errors.
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictApplied:
		return "applied"
	case VerdictBuffered:
		return "buffered"
	default:
		return "rejected"
	}
}

// admits is the admission check: every clock entry other than the origin's
// own must not run ahead of what this document has observed by more than 1.
// Caller holds the document lock.
func (d *Document) admits(op Operation) bool {
	for src, pro := range op.Clock {
		if src == op.Origin {
			continue
		}
		if pro > d.clock.Get(src)+1 {
			return false
		}
	}
	return true
}

// ApplyRemote feeds a peer operation through the causal gate. A missing
// session is a benign no-op: remote messages may legitimately race teardown.
func (e *Engine) ApplyRemote(sessionID string, op Operation) Verdict {
	ls, ok := e.sessions.Load(sessionID)
	if !ok {
		e.log.Debug("remote op for unknown session", "session", sessionID, "op", op.ID)
		opsRejected.WithLabelValues("no_session").Inc()
		return VerdictRejected
	}

	if op.ID != "" {
		if _, dup := e.seen.Get(op.ID); dup {
			e.log.Debug("duplicate remote op", "session", sessionID, "op", op.ID)
			opsRejected.WithLabelValues("duplicate").Inc()
			return VerdictRejected
		}
	}

	if e.tryApply(sessionID, ls, op) {
		e.drainPending(sessionID, ls)
		return VerdictApplied
	}

	if e.opts.MaxPending > 0 {
		switch ls.hold(op, e.opts.MaxPending) {
		case holdOK:
			opsBuffered.Inc()
			e.log.Debug("remote op buffered", "session", sessionID, "op", op.ID)
			return VerdictBuffered
		case holdDuplicate:
			e.log.Debug("duplicate remote op", "session", sessionID, "op", op.ID)
			opsRejected.WithLabelValues("duplicate").Inc()
			return VerdictRejected
		default:
			opsRejected.WithLabelValues("buffer_full").Inc()
			return VerdictRejected
		}
	}

	opsRejected.WithLabelValues("causal_gap").Inc()
	e.log.Debug("remote op rejected", "session", sessionID, "op", op.ID,
		"clock", op.Clock.String())
	return VerdictRejected
}

// tryApply runs the gate plus apply and, on success, the bookkeeping every
// admitted remote op gets: dedupe record, metrics, content event.
func (e *Engine) tryApply(sessionID string, ls *liveSession, op Operation) bool {
	if !ls.doc.applyRemote(op) {
		return false
	}
	if op.ID != "" {
		e.seen.Add(op.ID, struct{}{})
	}
	opsApplied.WithLabelValues(string(op.Kind), "remote").Inc()
	e.emit(sessionID, Event{
		Kind:          EventContent,
		ParticipantID: op.Origin,
		Timestamp:     op.Timestamp,
		Data:          op,
	})
	return true
}

// drainPending retries held operations until a full pass makes no progress.
// Every apply advances the clock, so one admitted op can unblock others.
func (e *Engine) drainPending(sessionID string, ls *liveSession) {
	for {
		held := ls.takePending()
		if len(held) == 0 {
			return
		}
		var left []Operation
		progress := false
		for _, op := range held {
			if op.ID != "" {
				if _, dup := e.seen.Get(op.ID); dup {
					opsRejected.WithLabelValues("duplicate").Inc()
					continue
				}
			}
			if e.tryApply(sessionID, ls, op) {
				progress = true
			} else {
				left = append(left, op)
			}
		}
		ls.putPending(left)
		if !progress {
			return
		}
	}
}
