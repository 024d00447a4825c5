package model

import "fmt"

const (
	CodeNeedTwo           = "NEED_2+"
	CodeTooMany           = "TOO_MANY"
	CodeNotEnough         = "NOT_ENOUGH"
	CodeViewNotFound      = "VIEW_NOT_FOUND"
	CodeSnapshotFail      = "SNAPSHOT_FAIL"
	CodeBadSource         = "BAD_SOURCE"
	CodeRemoteTimeout     = "REMOTE_TIMEOUT"
	CodeRemoteFailed      = "REMOTE_FAILED"
	CodeRemoteUnreachable = "REMOTE_UNREACHABLE"
	CodeResolveError      = "RESOLVE_ERROR"
	CodeCollaboratorFail  = "DIFF_COLLABORATOR_FAIL"
	CodeProjectMismatch   = "PROJECT_MISMATCH"
	CodeViewTypeMismatch  = "VIEW_TYPE_MISMATCH"
	CodeBaselineClamped   = "BASELINE_CLAMPED"
)

// Issue is a non-fatal problem accumulated while serving a request.
type Issue struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// NewIssue builds an Issue with a formatted message.
func NewIssue(code string, ctx map[string]interface{}, format string, args ...interface{}) *Issue {
	return &Issue{Code: code, Message: fmt.Sprintf(format, args...), Context: ctx}
}

func (i *Issue) Error() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}
