package pipeline

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Notifier emits the debug-build warning at most once over its lifetime.
// Share one Notifier across the stages of a run.
type Notifier struct {
	once sync.Once
	log  logrus.FieldLogger
}

// NewNotifier returns a Notifier logging through log, or the standard logger
// when log is nil.
func NewNotifier(log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{log: log}
}

// DebugModuleAdded records that module was enabled and reports whether this
// call produced the warning.
func (n *Notifier) DebugModuleAdded(module string) bool {
	warned := false
	n.once.Do(func() {
		n.log.Warnf("Added debug module %s, but the release must be built with "+
			"USER_CXXFLAGS=\"-DEDM_ML_DEBUG\" for it to have any effect", module)
		warned = true
	})
	return warned
}
