package actions

import "errors"

// errEntryPanicked marks an entry whose pipeline panicked.
var errEntryPanicked = errors.New("entry processing panicked")
