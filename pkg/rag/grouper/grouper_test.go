package grouper

import (
	"fmt"
	"strings"
	"testing"

	"kb-agent/pkg/kb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hit(uri, portionType, id, title, text string) kb.Hit {
	return kb.Hit{
		Metadata: kb.Metadata{
			WorkFRBRURI:    uri,
			PortionType:    portionType,
			PortionID:      id,
			PortionTitle:   title,
			Title:          "Work " + uri,
			ExpressionDate: "2020-01-01",
			PublicURL:      "https://lawlibrary.example" + uri,
		},
		Content: kb.Content{Text: text},
	}
}

func TestGroupSingleDocumentMixedPortionTypes(t *testing.T) {
	docs := Group([]kb.Hit{
		hit("A", "provision", "s1", "Section 1", "Text1"),
		hit("A", "heading", "h1", "", "ignore"),
		hit("A", "provision", "s2", "Section 2", "Text2"),
	})

	require.Len(t, docs, 1)
	want := strings.Join([]string{
		"# Document 1",
		"title: Work A",
		"work_frbr_uri: A",
		"date: 2020-01-01",
		"public_url: https://lawlibrary.exampleA",
		"",
		"",
		`<portion id="s1" title="Section 1">`,
		"Text1",
		"</portion>",
		"",
		`<portion id="s2" title="Section 2">`,
		"Text2",
		"</portion>",
	}, "\n")
	assert.Equal(t, want, docs[0])
	assert.NotContains(t, docs[0], "ignore")
}

func TestGroupInterleavedArrivalKeepsFirstSeenOrder(t *testing.T) {
	docs := Group([]kb.Hit{
		hit("A", "provision", "a1", "", "A1"),
		hit("B", "provision", "b1", "", "B1"),
		hit("A", "provision", "a2", "", "A2"),
	})

	require.Len(t, docs, 2)
	assert.True(t, strings.HasPrefix(docs[0], "# Document 1\ntitle: Work A\n"))
	assert.True(t, strings.HasPrefix(docs[1], "# Document 2\ntitle: Work B\n"))

	assert.Less(t, strings.Index(docs[0], "A1"), strings.Index(docs[0], "A2"))
	assert.NotContains(t, docs[0], "B1")
	assert.Contains(t, docs[1], "B1")
	assert.NotContains(t, docs[1], "A1")
}

func TestGroupNumberingSkipsFilteredDocuments(t *testing.T) {
	docs := Group([]kb.Hit{
		hit("A", "heading", "h1", "", "only a heading"),
		hit("B", "provision", "b1", "", "B1"),
		hit("C", "preface", "p", "", "preface"),
		hit("D", "provision", "d1", "", "D1"),
	})

	require.Len(t, docs, 2)
	assert.True(t, strings.HasPrefix(docs[0], "# Document 1\ntitle: Work B"))
	assert.True(t, strings.HasPrefix(docs[1], "# Document 2\ntitle: Work D"))
}

func TestGroupHeaderFromFirstQualifyingHit(t *testing.T) {
	heading := hit("A", "heading", "h1", "", "x")
	heading.Metadata.Title = "Heading title"
	provision := hit("A", "provision", "s1", "", "y")
	provision.Metadata.Title = "Provision title"

	docs := Group([]kb.Hit{heading, provision})
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "title: Provision title\n")
}

func TestGroupEmptyInputs(t *testing.T) {
	docs := Group(nil)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	docs = Group([]kb.Hit{hit("A", "heading", "h", "", "x"), hit("B", "crossheading", "c", "", "y")})
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestGroupMissingOptionalMetadata(t *testing.T) {
	docs := Group([]kb.Hit{{
		Metadata: kb.Metadata{WorkFRBRURI: "A", PortionType: "provision", PortionID: "s1"},
		Content:  kb.Content{Text: "body"},
	}})

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "title: \n")
	assert.Contains(t, docs[0], "date: \n")
	assert.Contains(t, docs[0], `<portion id="s1" title="">`)
}

func TestGroupEscapesAttributesButNotText(t *testing.T) {
	docs := Group([]kb.Hit{hit("A", "provision", "s1", `Use of "public" <roads>`, `Text with "quotes" & <tags>`)})

	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], `title="Use of &#34;public&#34; &lt;roads&gt;"`)
	assert.Contains(t, docs[0], `Text with "quotes" & <tags>`)
}

// Fragment order inside every block equals the input subsequence order.
func TestGroupPreservesSubsequenceOrder(t *testing.T) {
	uris := []string{"A", "B", "C"}
	var hits []kb.Hit
	for i := 0; i < 30; i++ {
		uri := uris[(i*7)%len(uris)]
		portionType := "provision"
		if i%4 == 0 {
			portionType = "heading"
		}
		hits = append(hits, hit(uri, portionType, fmt.Sprintf("p%02d", i), "", fmt.Sprintf("text-%02d", i)))
	}

	docs := Group(hits)
	require.Len(t, docs, 3)

	for _, doc := range docs {
		last := -1
		for i, h := range hits {
			if h.Metadata.PortionType != "provision" || !strings.Contains(doc, "work_frbr_uri: "+h.Metadata.WorkFRBRURI+"\n") {
				continue
			}
			pos := strings.Index(doc, fmt.Sprintf("text-%02d", i))
			require.NotEqual(t, -1, pos)
			assert.Greater(t, pos, last)
			last = pos
		}
	}
}
