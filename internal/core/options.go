package core

import "log/slog"

// WithActionRunner resolves actions the machine cannot run itself, such as
// names loaded from a topology file.
func WithActionRunner(r ActionRunner) Option {
	return func(m *Machine) { m.actionRunner = r }
}

// WithGuardEvaluator resolves named and expression guards.
func WithGuardEvaluator(e GuardEvaluator) Option {
	return func(m *Machine) { m.guardEval = e }
}

// WithPublisher reports every transition taken to pb.
func WithPublisher(pb EventPublisher) Option {
	return func(m *Machine) { m.publisher = pb }
}

// WithVisualizer enables Visualize.
func WithVisualizer(v Visualizer) Option {
	return func(m *Machine) { m.visualizer = v }
}

// WithLogger replaces slog.Default(). A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}
