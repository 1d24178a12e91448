package repository

import "errors"

// errNoMatch aborts a collection update whose target record is absent, so the
// unchanged collection is not rewritten.
var errNoMatch = errors.New("no matching record")
