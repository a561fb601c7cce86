package archive

import "time"

// epoch is the normalized timestamp every packed entry carries, and the
// timestamp set_timestamps (pkg/store) stamps onto unpacked output trees,
// per spec.md invariant I2.
var epoch = time.Unix(0, 0).UTC()
