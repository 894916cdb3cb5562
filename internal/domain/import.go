package domain

import "strings"

// ImportStatus is the lifecycle state of a group import.
type ImportStatus string

// Import statuses.
const (
	ImportPending   ImportStatus = "pending"
	ImportSucceeded ImportStatus = "succeeded"
	ImportFailed    ImportStatus = "failed"
)

// Valid reports whether s is a known status.
func (s ImportStatus) Valid() bool {
	switch s {
	case ImportPending, ImportSucceeded, ImportFailed:
		return true
	}
	return false
}

// GroupImport records one CSV file imported as a ThruText group.
//
// Bulk contact imports cannot be undone remotely, so every attempt is logged
// with the hash of the file it sent.
type GroupImport struct {
	Record
	GroupName     string       `json:"group_name"`
	FileName      string       `json:"file_name,omitempty"`
	ContentHash   string       `json:"content_hash"`
	RemoteGroupID string       `json:"remote_group_id,omitempty"`
	Rows          int          `json:"rows"`
	CustomFields  []byte       `json:"-"`
	Critical      []byte       `json:"-"`
	Status        ImportStatus `json:"status"`
	Error         string       `json:"error,omitempty"`
}

// Succeed marks the import as accepted by the remote service.
func (g *GroupImport) Succeed(remoteGroupID string) {
	g.Status = ImportSucceeded
	g.RemoteGroupID = remoteGroupID
	g.Error = ""
	g.Touch()
}

// Fail marks the import as rejected.
func (g *GroupImport) Fail(err error) {
	g.Status = ImportFailed
	if err != nil {
		g.Error = strings.TrimSpace(err.Error())
	}
	g.Touch()
}

// Done reports whether the import reached a final status.
func (g *GroupImport) Done() bool {
	return g.Status == ImportSucceeded || g.Status == ImportFailed
}
