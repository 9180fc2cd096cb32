package etl

const (
	ResultSuccess = "Success"
	ResultFailure = "Failure"
)

// Failure messages reported to the caller. Each names a distinct phase so
// callers can tell client construction, extraction and state updates apart.
const (
	MsgNoCredentials   = "AWS credentials not found. Unable to create S3 client"
	MsgClientError     = "Error creating S3 client"
	MsgConnectError    = "Error connecting to source database"
	MsgWatermarkRead   = "Error reading last_extracted.txt"
	MsgExtractError    = "Error extracting data"
	MsgWatermarkUpdate = "Error updating last_extracted.txt"
	MsgUnexpected      = "Unexpected error"
	MsgLoadError       = "Error loading landing data"
	MsgTransformError  = "Error transforming data"
	MsgSaveError       = "Error saving processed data"
)

// Outcome is the structured result of a job run.
type Outcome struct {
	Result   string   `json:"result"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func Success(warnings ...string) Outcome {
	return Outcome{Result: ResultSuccess, Warnings: warnings}
}

func Failure(msg string) Outcome {
	return Outcome{Result: ResultFailure, Error: msg}
}

func (o Outcome) OK() bool {
	return o.Result == ResultSuccess
}
