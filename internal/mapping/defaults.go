package mapping

// DefaultMappings is the mapping table seeded for a new organization.
// Source lists cover the field names the common form builders emit;
// first match wins, so direct keys outrank the split full-name key.
func DefaultMappings() []FieldMapping {
	return []FieldMapping{
		{
			Key:       KeyFirstName,
			Sources:   []string{"first_name", "firstname", "fname", "given_name", "full_name", "name", "your_name"},
			Transform: TransformSplitName,
		},
		{
			Key:       KeyLastName,
			Sources:   []string{"last_name", "lastname", "lname", "surname", "family_name", "full_name", "name", "your_name"},
			Transform: TransformSplitName,
		},
		{
			Key:        KeyEmail,
			Sources:    []string{"email", "email_address", "e-mail", "emailaddress", "mail"},
			Transform:  TransformNormalizeEmail,
			Validation: ValidationEmail,
			Required:   true,
		},
		{
			Key:        KeyPhone,
			Sources:    []string{"phone", "phone_number", "phonenumber", "tel", "telephone", "mobile", "cell"},
			Transform:  TransformFormatPhone,
			Validation: ValidationPhone,
		},
		{
			Key:     KeyMessage,
			Sources: []string{"message", "comments", "comment", "notes", "description", "question", "inquiry"},
		},
		{
			Key:     KeyListingID,
			Sources: []string{"listing_id", "listingid", "property_id", "mls_number", "mls"},
		},
		{
			Key:     KeyAgentID,
			Sources: []string{"agent_id", "agentid", "agent"},
		},
		{
			Key:     KeyInterests,
			Sources: []string{"interests", "interest", "interests[]"},
		},
	}
}
