// internal/workers/prospect/record-interest/models.go
package recordinterest

type Input struct {
	ProspectID string   `json:"prospectId"`
	ItemIDs    []string `json:"itemIds"`
}

type Output struct {
	Recorded        int `json:"recorded"`
	AlreadyRecorded int `json:"alreadyRecorded"`
}
