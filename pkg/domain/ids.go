package domain

import "github.com/google/uuid"

// Typed IDs keep case and invoice references from being swapped accidentally.
// They are plain UUIDs on the wire and in the database.
type (
	CaseID    uuid.UUID
	InvoiceID uuid.UUID
)

func NewCaseID() CaseID       { return CaseID(uuid.New()) }
func NewInvoiceID() InvoiceID { return InvoiceID(uuid.New()) }

func (id CaseID) String() string    { return uuid.UUID(id).String() }
func (id CaseID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id InvoiceID) String() string { return uuid.UUID(id).String() }
func (id InvoiceID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// IDs travel as their textual UUID form in JSON.

func (id CaseID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CaseID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id InvoiceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *InvoiceID) UnmarshalText(b []byte) error {
	parsed, err := ParseInvoiceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseCaseID parses the textual UUID form used by transport and storage.
func ParseCaseID(s string) (CaseID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CaseID{}, err
	}
	return CaseID(u), nil
}

func ParseInvoiceID(s string) (InvoiceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return InvoiceID{}, err
	}
	return InvoiceID(u), nil
}
