// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DetailHeader is the column header of a source-detail log.
var DetailHeader = []string{
	"Title", "URL", "Description", "Details", "ShortDetails",
	"Resource", "Type", "Identifiers", "Db", "EntrezUID", "Properties",
}

// DetailRecord is one row of a source-detail log: the bibliographic summary
// a structured API returns for one article id.
type DetailRecord struct {
	Title        string
	URL          string
	Description  string
	Details      string
	ShortDetails string
	Resource     string
	Type         string
	Identifiers  string
	DB           string
	UID          string
	Properties   string
}

// Row returns the record in DetailHeader order.
func (d DetailRecord) Row() []string {
	return []string{
		d.Title, d.URL, d.Description, d.Details, d.ShortDetails,
		d.Resource, d.Type, d.Identifiers, d.DB, d.UID, d.Properties,
	}
}
