package pump

// Recorder receives per-transfer observations.
type Recorder interface {
	ObserveTransfer(stream string, n int)
	ObserveTransferError(stream string)
}

// Stats summarizes what a pump moved.
type Stats struct {
	Bytes     int64
	Transfers int
	Errors    int
}
