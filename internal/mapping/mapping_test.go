package mapping

import "testing"

func TestNewTableRejectsDuplicateKeys(t *testing.T) {
	_, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: []string{"email"}},
		{Key: KeyEmail, Sources: []string{"mail"}},
	})
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestNewTableRejectsEmptySources(t *testing.T) {
	_, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: nil},
	})
	if err == nil {
		t.Fatal("expected empty sources error")
	}
}

func TestNewTableRejectsUnknownTransform(t *testing.T) {
	_, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: []string{"email"}, Transform: "uppercase"},
	})
	if err == nil {
		t.Fatal("expected unknown transform error")
	}
}

func TestNewTableRejectsUnknownValidation(t *testing.T) {
	_, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: []string{"email"}, Validation: "url"},
	})
	if err == nil {
		t.Fatal("expected unknown validation error")
	}
}

func TestTableMappingsReturnsIndependentCopy(t *testing.T) {
	table, err := NewTable([]FieldMapping{
		{Key: KeyEmail, Sources: []string{"email"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	mappings := table.Mappings()
	mappings[0].Key = "mutated"
	mappings[0].Sources[0] = "mutated"

	again := table.Mappings()
	if again[0].Key != KeyEmail {
		t.Fatalf("snapshot key mutated: %q", again[0].Key)
	}
	if again[0].Sources[0] != "email" {
		t.Fatalf("snapshot sources mutated: %q", again[0].Sources[0])
	}
}
