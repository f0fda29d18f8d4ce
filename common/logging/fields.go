package logging

const (
	// FieldError can be used instead of Err(err) if you have only the error message string.
	FieldError = "err"

	FieldComponent = "component"

	FieldDuration = "duration"
	FieldUrl      = "url"

	FieldAccountAddress = "accountAddress"

	FieldBlobKey     = "blobKey"
	FieldBlobSize    = "blobSize"
	FieldBlobStatus  = "blobStatus"
	FieldBlobVersion = "blobVersion"

	FieldQuorums       = "quorums"
	FieldPaymentMethod = "paymentMethod"
	FieldSymbols       = "symbols"

	FieldNetwork = "network"
)
