package domain

import "slices"

// Document describes one file attached to a tender notice.
type Document struct {
	Name string `json:"name"`
	Size string `json:"size"`
}

// Tender is a public procurement notice as returned by a completed job.
type Tender struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Organization    string     `json:"organization"`
	PublicationDate string     `json:"publicationDate"`
	ClosingDate     string     `json:"closingDate"`
	Documents       []Document `json:"documents"`
}

func (t Tender) Clone() Tender {
	cp := t
	cp.Documents = slices.Clone(t.Documents)
	return cp
}

// FixtureTenders returns the two canned results attached to every completed job.
func FixtureTenders() []Tender {
	return []Tender{
		{
			ID:              "1",
			Title:           "Rénovation de bureaux administratifs",
			Organization:    "Ministère des Transports",
			PublicationDate: "2023-05-01",
			ClosingDate:     "2023-06-01",
			Documents: []Document{
				{Name: "Document principal.pdf", Size: "1.2 MB"},
				{Name: "Annexe technique.pdf", Size: "0.8 MB"},
			},
		},
		{
			ID:              "2",
			Title:           "Fourniture de matériel informatique",
			Organization:    "Centre de services scolaire de Montréal",
			PublicationDate: "2023-05-05",
			ClosingDate:     "2023-06-05",
			Documents: []Document{
				{Name: "Devis technique.pdf", Size: "2.5 MB"},
				{Name: "Formulaire de soumission.xlsx", Size: "0.3 MB"},
			},
		},
	}
}
