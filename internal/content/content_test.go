package content

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linkedPage struct {
	Base
	Related []ContentItem
}

func (p *linkedPage) Bind(raw RawItem, links Linker) error {
	p.bindBase(raw)
	p.Related = links.Linked(raw.LinkedCodenames("related"))
	return nil
}

func rawItem(t *testing.T, codename, contentType string, elements map[string]any) RawItem {
	t.Helper()
	raw := RawItem{
		System:   System{Codename: codename, Type: contentType},
		Elements: map[string]RawElement{},
	}
	for name, value := range elements {
		b, err := json.Marshal(value)
		require.NoError(t, err)
		raw.Elements[name] = RawElement{Name: name, Value: b}
	}
	return raw
}

func TestBuild(t *testing.T) {
	provider := NewTypeProvider()
	provider.Register("page", func() Item { return &linkedPage{} })

	t.Run("linked references share identity across a cycle", func(t *testing.T) {
		a := rawItem(t, "a", "page", map[string]any{"related": []string{"b"}})
		b := rawItem(t, "b", "page", map[string]any{"related": []string{"a", "missing"}})

		items, err := provider.Build([]RawItem{a}, map[string]RawItem{"b": b})
		require.NoError(t, err)
		require.Len(t, items, 1)

		pageA := items[0].(*linkedPage)
		require.Len(t, pageA.Related, 1)
		pageB := pageA.Related[0].(*linkedPage)
		require.Len(t, pageB.Related, 1, "codenames outside the fetched depth are skipped")
		assert.Same(t, pageA, pageB.Related[0])
	})

	t.Run("unknown types fall back to generic items", func(t *testing.T) {
		items, err := provider.Build([]RawItem{rawItem(t, "cafe-1", "cafe", nil)}, nil)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.IsType(t, &Generic{}, items[0])
		assert.Equal(t, "cafe-1", items[0].Sys().Codename)
	})

	t.Run("articles decode their post date", func(t *testing.T) {
		raw := rawItem(t, "on-roasts", "article", map[string]any{
			"title":     "On roasts",
			"post_date": "2014-10-05T00:00:00Z",
		})
		items, err := provider.Build([]RawItem{raw}, nil)
		require.NoError(t, err)

		article := items[0].(*Article)
		assert.Equal(t, "On roasts", article.Title)
		require.NotNil(t, article.PostDate)
		assert.Equal(t, time.Date(2014, time.October, 5, 0, 0, 0, 0, time.UTC), *article.PostDate)
	})
}

func TestCodenames(t *testing.T) {
	items := []ContentItem{
		&Generic{Base: Base{System: System{Codename: "about-1"}}},
		&Article{Base: Base{System: System{Codename: "post-1"}}},
	}
	assert.Equal(t, []string{"about-1", "post-1"}, Codenames(items))
	assert.Empty(t, Codenames([]ContentItem{}))
	assert.Panics(t, func() { Codenames(nil) })
}

func TestDateTimeOf(t *testing.T) {
	cases := []struct {
		name  string
		value any
		ok    bool
	}{
		{name: "rfc3339", value: "2015-01-20T10:00:00Z", ok: true},
		{name: "bare date", value: "2015-01-20", ok: true},
		{name: "garbage", value: "next tuesday", ok: false},
		{name: "null", value: nil, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := rawItem(t, "x", "article", map[string]any{"post_date": tc.value})
			item := &Generic{}
			require.NoError(t, item.Bind(raw, nil))

			_, ok := DateTimeOf(item, "post_date")
			assert.Equal(t, tc.ok, ok)
		})
	}

	t.Run("missing element", func(t *testing.T) {
		_, ok := DateTimeOf(&Generic{}, "post_date")
		assert.False(t, ok)
	})
}

func TestRawOf(t *testing.T) {
	raw := rawItem(t, "about-1", "page", map[string]any{"body": "<p>hi</p>"})
	item := &Generic{}
	require.NoError(t, item.Bind(raw, nil))

	got := RawOf(item)
	assert.Equal(t, "about-1", got.System.Codename)
	assert.Equal(t, "<p>hi</p>", got.Text("body"))

	type bare struct{ ContentItem }
	only := RawOf(bare{item})
	assert.Equal(t, "about-1", only.System.Codename)
	assert.Empty(t, only.Elements)
}
