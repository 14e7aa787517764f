package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfidenceForSource(t *testing.T) {
	tests := []struct {
		name     string
		source   ItemSource
		expected float32
	}{
		{"bookmark", ItemSourceBookmark, 0.3},
		{"first party", ItemSourceFirstParty, 0.8},
		{"research", ItemSourceResearch, 0.5},
		{"voice", ItemSourceVoice, 0.7},
		{"paste", ItemSourcePaste, 0.6},
		{"upload", ItemSourceUpload, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ConfidenceForSource(tt.source))
		})
	}
}

func TestItemSourceForType(t *testing.T) {
	assert.Equal(t, ItemSourceBookmark, ItemSourceForType(SourceTypeBookmark))
	assert.Equal(t, ItemSourcePaste, ItemSourceForType(SourceTypeText))
	assert.Equal(t, ItemSourceUpload, ItemSourceForType(SourceTypeFile))
	assert.Equal(t, ItemSourceVoice, ItemSourceForType(SourceTypeVoiceRecording))
}

func TestValidateKnowledgeItem(t *testing.T) {
	valid := func() *KnowledgeItem {
		return &KnowledgeItem{
			ID:            "item-1",
			OrgID:         "org-1",
			UserID:        "user-1",
			SourceID:      "src-1",
			RawText:       "We ship on Fridays.",
			RawTextSHA256: "abc123",
			Type:          ItemTypeNote,
			Source:        ItemSourcePaste,
			Confidence:    0.6,
		}
	}

	tests := []struct {
		name    string
		mutate  func(k *KnowledgeItem)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid item",
			mutate:  func(k *KnowledgeItem) {},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(k *KnowledgeItem) { k.ID = "" },
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing OrgID",
			mutate:  func(k *KnowledgeItem) { k.OrgID = "" },
			wantErr: true,
			errMsg:  "OrgID",
		},
		{
			name:    "missing RawText",
			mutate:  func(k *KnowledgeItem) { k.RawText = "" },
			wantErr: true,
			errMsg:  "RawText",
		},
		{
			name:    "missing hash",
			mutate:  func(k *KnowledgeItem) { k.RawTextSHA256 = "" },
			wantErr: true,
			errMsg:  "RawTextSHA256",
		},
		{
			name:    "confidence above one",
			mutate:  func(k *KnowledgeItem) { k.Confidence = 1.2 },
			wantErr: true,
			errMsg:  "Confidence",
		},
		{
			name:    "confidence below zero",
			mutate:  func(k *KnowledgeItem) { k.Confidence = -0.1 },
			wantErr: true,
			errMsg:  "Confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := valid()
			tt.mutate(item)
			err := ValidateKnowledgeItem(item)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
