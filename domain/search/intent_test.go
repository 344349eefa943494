package search

import "testing"

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"Where is the UserService class?", IntentNavigation},
		{"show me the definition of Login", IntentNavigation},
		{"what calls HashPassword?", IntentRelations},
		{"who uses the session store", IntentRelations},
		{"implementations of IRepository", IntentRelations},
		{"explain the retry logic", IntentDocumentation},
		{"how does authentication work", IntentDocumentation},
		{"example of using the embedding client", IntentExamples},
		{"show me how to use the tracker", IntentExamples},
		{"password hashing", IntentSearch},
		{"UserService", IntentNavigation},
		{"hash_password", IntentNavigation},
		{"", IntentSearch},
	}

	for _, tt := range tests {
		if got := DetectIntent(tt.query); got != tt.want {
			t.Errorf("DetectIntent(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestIsIdentifier(t *testing.T) {
	identifiers := []string{"UserService", "hashPassword", "hash_password", "Acme.Auth.UserService"}
	for _, id := range identifiers {
		if !IsIdentifier(id) {
			t.Errorf("IsIdentifier(%q) = false, want true", id)
		}
	}

	notIdentifiers := []string{"where is it", "password", ""}
	for _, s := range notIdentifiers {
		if IsIdentifier(s) {
			t.Errorf("IsIdentifier(%q) = true, want false", s)
		}
	}
}
