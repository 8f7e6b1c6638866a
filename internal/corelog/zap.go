package corelog

import "go.uber.org/zap"

// Zap adapts a *zap.SugaredLogger to the Logger interface. This is the
// production implementation; every core component is constructed with
// this unless a test substitutes Nop or a Spy.
type Zap struct {
	s *zap.SugaredLogger
}

// NewZap wraps an existing sugared logger.
func NewZap(s *zap.SugaredLogger) Zap {
	return Zap{s: s}
}

// NewDefaultZap builds a production zap logger for the named component
// (e.g. "kv", "stream") and wraps it.
func NewDefaultZap(name string) (Zap, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return Zap{}, err
	}
	return Zap{s: base.Sugar().Named(name)}, nil
}

func (z Zap) Debugw(msg string, keysAndValues ...any) { z.s.Debugw(msg, keysAndValues...) }
func (z Zap) Infow(msg string, keysAndValues ...any)  { z.s.Infow(msg, keysAndValues...) }
func (z Zap) Warnw(msg string, keysAndValues ...any)  { z.s.Warnw(msg, keysAndValues...) }
func (z Zap) Errorw(msg string, keysAndValues ...any) { z.s.Errorw(msg, keysAndValues...) }
