package domain

import (
	"encoding/json/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBook_UnmarshalContents(t *testing.T) {
	payload := []byte(`{
		"id": 1,
		"name": "Guide",
		"slug": "guide",
		"created_by": 3,
		"owned_by": {"id": 4, "name": "Admin", "slug": "admin"},
		"contents": [
			{"id": 10, "type": "chapter", "name": "Intro", "pages": [
				{"id": 101, "name": "One", "slug": "one", "book_id": 1, "chapter_id": 10, "draft": false, "template": false},
				{"id": 102, "name": "Two", "slug": "two", "book_id": 1, "chapter_id": 10, "draft": false, "template": false}
			]},
			{"id": 20, "type": "page", "name": "Appendix"},
			{"id": 30, "type": "survey", "name": "Feedback"}
		],
		"tags": [{"name": "lang", "value": "en", "order": 2}]
	}`)

	var book Book
	require.NoError(t, json.Unmarshal(payload, &book))

	require.Len(t, book.Contents, 3)
	assert.Equal(t, ContentChapter, book.Contents[0].Kind)
	assert.Equal(t, ContentPage, book.Contents[1].Kind)
	assert.Equal(t, ContentUnknown, book.Contents[2].Kind)
	assert.Equal(t, "survey", book.Contents[2].Type)

	require.Len(t, book.Contents[0].Pages, 2)
	assert.Equal(t, int64(101), book.Contents[0].Pages[0].ID)
	assert.Equal(t, int64(102), book.Contents[0].Pages[1].ID)

	require.NotNil(t, book.CreatedBy)
	assert.Equal(t, int64(3), book.CreatedBy.ID)
	require.NotNil(t, book.OwnedBy)
	assert.Equal(t, "Admin", book.OwnedBy.Name)

	assert.Equal(t, []Tag{{Name: "lang", Value: "en", Order: 2}}, book.Tags)
}

func TestUserRef_UnmarshalRejectsStrings(t *testing.T) {
	var ref UserRef
	err := ref.UnmarshalJSON([]byte(`"someone"`))
	assert.Error(t, err)
}

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		in   string
		want ContentKind
	}{
		{"chapter", ContentChapter},
		{"page", ContentPage},
		{"Chapter", ContentUnknown},
		{"", ContentUnknown},
		{"survey", ContentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseContentKind(tt.in))
		})
	}
}

func TestPageDraft_MarshalPlacement(t *testing.T) {
	t.Run("in book", func(t *testing.T) {
		data, err := json.Marshal(PageDraft{Placement: InBook(7), Name: "Loose", HTML: "<p>x</p>"})
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, float64(7), got["book_id"])
		assert.NotContains(t, got, "chapter_id")
		assert.NotContains(t, got, "id")
	})

	t.Run("in chapter", func(t *testing.T) {
		data, err := json.Marshal(PageDraft{Placement: InChapter(7, 9), Name: "Nested", Markdown: "# x"})
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, float64(7), got["book_id"])
		assert.Equal(t, float64(9), got["chapter_id"])
	})
}

func TestPlacement(t *testing.T) {
	p := InBook(5)
	_, inChapter := p.ChapterID()
	assert.False(t, inChapter)
	assert.True(t, p.Valid())

	p = InChapter(5, 6)
	id, inChapter := p.ChapterID()
	assert.True(t, inChapter)
	assert.Equal(t, int64(6), id)

	assert.False(t, Placement{}.Valid())
}
