package phi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_EmptyText(t *testing.T) {
	assert.Nil(t, Detect(""))
}

func TestDetect_NoSensitiveData(t *testing.T) {
	fields := Detect("The patient reported mild nausea after the second dose.")
	assert.Empty(t, fields)
}

func TestDetect_SSN(t *testing.T) {
	fields := Detect("SSN on file: 123-45-6789")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldSSN, fields[0].Type)
	assert.Equal(t, "123-45-6789", fields[0].Value)
	assert.Equal(t, ClassificationPHI, fields[0].Classification)
	assert.False(t, fields[0].Encrypted)
}

func TestDetect_Phone(t *testing.T) {
	fields := Detect("Call the reporter at 555-123-4567 for follow-up.")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldPhone, fields[0].Type)
	assert.Equal(t, ClassificationPHI, fields[0].Classification)
}

func TestDetect_EmailIsPII(t *testing.T) {
	fields := Detect("Contact: jane.doe@example.com")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldEmail, fields[0].Type)
	assert.Equal(t, ClassificationPII, fields[0].Classification)
}

func TestDetect_DateOfBirth(t *testing.T) {
	fields := Detect("DOB 01/15/1985")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldDateOfBirth, fields[0].Type)
	assert.Equal(t, "01/15/1985", fields[0].Value)
}

func TestDetect_MedicalRecordNumber(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"colon separator", "MRN: 12345678"},
		{"hash separator", "MR# 123456"},
		{"lowercase", "mrn: 9876543"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := Detect(tt.text)
			require.Len(t, fields, 1)
			assert.Equal(t, FieldMedicalRecord, fields[0].Type)
		})
	}
}

func TestDetect_HealthCard(t *testing.T) {
	fields := Detect("Health card 4444-333-222 presented at intake.")
	require.Len(t, fields, 1)
	assert.Equal(t, FieldHealthCard, fields[0].Type)
}

func TestDetect_MultipleOccurrences(t *testing.T) {
	fields := Detect("Emails: a@example.com and b@example.org")
	require.Len(t, fields, 2)
	assert.Equal(t, FieldEmail, fields[0].Type)
	assert.Equal(t, FieldEmail, fields[1].Type)
}

func TestDetect_MixedCategories(t *testing.T) {
	text := "Reporter jane@example.com, phone 555-123-4567, SSN 123-45-6789"
	fields := Detect(text)
	require.Len(t, fields, 3)

	byType := make(map[FieldType]Field)
	for _, f := range fields {
		byType[f.Type] = f
	}
	assert.Contains(t, byType, FieldSSN)
	assert.Contains(t, byType, FieldPhone)
	assert.Contains(t, byType, FieldEmail)
}

func TestSummarize(t *testing.T) {
	fields := []Field{
		{Type: FieldEmail, Classification: ClassificationPII},
		{Type: FieldSSN, Classification: ClassificationPHI},
		{Type: FieldPhone, Classification: ClassificationPHI},
	}

	summary := Summarize(fields)
	assert.Equal(t, 1, summary[ClassificationPII])
	assert.Equal(t, 2, summary[ClassificationPHI])
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)
	assert.Empty(t, summary)
	assert.NotNil(t, summary)
}
