package devtools

import "errors"

var errBoom = errors.New("boom")
