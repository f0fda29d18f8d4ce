package disperse

const (
	fileFlag      = "file"
	dataFlag      = "data"
	quorumsFlag   = "quorums"
	versionFlag   = "blob-version"
	advancedFlag  = "advanced"
	waitFlag      = "wait"
	recordOutFlag = "record-out"
)

type dispersalParams struct {
	file      string
	data      string
	quorums   []uint
	version   uint16
	advanced  bool
	wait      bool
	recordOut string
}

var params dispersalParams
