package model

import "time"

// ChangeType defines the kind of write that produced a change event.
type ChangeType string

const (
	// ChangeInserted signifies a document was created by POST.
	ChangeInserted ChangeType = "inserted"
	// ChangeUpdated signifies a document was modified by PUT.
	ChangeUpdated ChangeType = "updated"
	// ChangeDeleted signifies a document was removed by DELETE.
	ChangeDeleted ChangeType = "deleted"
)

// ResumeToken identifies a position in the change journal of one collection.
type ResumeToken string

// ChangeEvent describes a successful write against a collection.
// Data carries the inserted document or the $set fields of an update, in
// wire form; it is empty for deletes.
type ChangeEvent struct {
	Type       ChangeType             `json:"type"`
	Database   string                 `json:"database"`
	Collection string                 `json:"collection"`
	ID         string                 `json:"id"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`

	// ResumeToken is assigned by the journal when the event is stored
	ResumeToken ResumeToken `json:"resumeToken,omitempty"`
}

// Stream names the journal stream holding events for db/collection
func Stream(database, collection string) string {
	return "changes:" + database + "/" + collection
}

// Stream returns the journal stream the event belongs to
func (e ChangeEvent) Stream() string {
	return Stream(e.Database, e.Collection)
}
