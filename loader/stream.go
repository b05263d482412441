package loader

// OnSequentialData appends the next chunk of the sequential stream and
// completes every request it covers.
func (l *Loader) OnSequentialData(p []byte) {
	if l.tornDown || len(p) == 0 {
		return
	}
	l.buf.Append(p)
	l.publishProgress()
	l.satisfyPending()
}

// OnSequentialFinished records that the whole document has arrived. The
// loader moves to Complete with reason Finished unless a transition already
// happened. Afterward the document is readable without the run loop.
func (l *Loader) OnSequentialFinished() {
	if l.tornDown {
		return
	}

	length := l.buf.Available()
	l.size.Store(length)
	l.freeze()
	log.Infof("stream finished after %d bytes", length)

	if !l.mode.Begin(ReasonFinished) {
		return
	}
	l.satisfyPending()
	l.resolveAll(false)
	l.mode.Finish()
	l.notifyHost(ReasonFinished)
}

// OnSequentialFailed records that no more stream data will arrive. Pending
// requests and every later request resolve empty.
func (l *Loader) OnSequentialFailed(err error) {
	if l.tornDown {
		return
	}
	l.failed = true
	log.Errorf("%s: %s", ErrStreamFailed, err)

	if !l.mode.Begin(ReasonFailed) {
		l.resolveAll(true)
		return
	}
	l.resolveAll(true)
	l.mode.Finish()
	l.notifyHost(ReasonFailed)
}

// NotifyNonIncrementalSentinel switches to Complete because the parser found
// the document cannot be read incrementally. Pending requests resolve with the
// best bytes available and no further fetch is issued. Repeated calls do
// nothing.
func (l *Loader) NotifyNonIncrementalSentinel() {
	if l.tornDown {
		return
	}
	if !l.mode.Begin(ReasonSentinel) {
		return
	}
	log.Infof("%s, waiting for the full document", ErrSentinelDetected)
	l.resolveAll(false)
	l.mode.Finish()
	l.notifyHost(ReasonSentinel)
}

// freeze publishes the finished document for lock-free reads.
func (l *Loader) freeze() {
	data := l.buf.Bytes()
	l.frozen.Store(&data)
}
