package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresMutation(t *testing.T) {
	tests := map[string]bool{
		"Schedule a call with Dana tomorrow at 3pm": true,
		"cancel my dentist appointment":             true,
		"send the invoice to Priya":                 true,
		"move the standup to 10am":                  true,
		"what's on my schedule next week?":          false,
		"find my meetings about budget next week":   false,
		"extract the identity record from the scan": false,

		"Could you please reschedule my dentist appointment":    true,
		"I need to cancel Friday's dinner":                      true,
		"Check my files and add a budget sync tomorrow":         true,
		"Thanks. Now delete the draft":                          true,
		"Which meetings did I cancel last week?":                false,
		"find the email where Sam asked me to send the invoice": false,
		"did anyone move the standup?":                          false,
	}
	for text, want := range tests {
		assert.Equal(t, want, RequiresMutation(text), text)
	}
}

func TestCreationAndLookupIntent(t *testing.T) {
	assert.True(t, HasCreationIntent("book a table friday"))
	assert.True(t, HasCreationIntent("remind me to call the bank"))
	assert.False(t, HasCreationIntent("find my receipts"))

	assert.True(t, HasLookupIntent("Do I have anything on Friday?"))
	assert.True(t, HasLookupIntent("find my receipts"))
	assert.False(t, HasLookupIntent("dentist tomorrow at 3pm"))
}

func TestDetectDomain(t *testing.T) {
	tests := map[string]Domain{
		"find my meetings about budget next week": DomainSchedule,
		"any new emails from the landlord?":       DomainMessaging,
		"where is the rental contract pdf":        DomainDocuments,
		"what does the travel policy say":         DomainKnowledge,
		"look up https://example.com/hours":       DomainWeb,
		"hello there":                             DomainNone,
	}
	for text, want := range tests {
		assert.Equal(t, want, DetectDomain(text), text)
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "budget", Topic("find my meetings about budget next week", "next week"))
	assert.Equal(t, "the Q3 roadmap", Topic("Any events regarding the Q3 roadmap?"))
	assert.Equal(t, "", Topic("show my calendar"))
}
