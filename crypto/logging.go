package crypto

import (
	"github.com/sirupsen/logrus"
)

// logFields returns the standard field set attached to every crypto log
// entry: the package name and the calling function, so log lines can be
// filtered without a caller-info scan on every call.
func logFields(function string) logrus.Fields {
	return logrus.Fields{
		"package":  "crypto",
		"function": function,
	}
}
