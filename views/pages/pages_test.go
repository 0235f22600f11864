package pages

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/views/models"
)

func TestHomePageEscapes(t *testing.T) {
	remind := time.Date(2024, 12, 15, 9, 0, 0, 0, time.UTC)
	notes := []models.NoteView{{ID: "n1", Title: "<script>x</script>", Category: "Work"}}
	tasks := []models.TaskView{{ID: "t1", Title: "Groceries", ReminderDate: &remind}, {ID: "t2", Title: "Done thing", Done: true}}

	var buf bytes.Buffer
	err := HomePage("<b>ana</b>", []models.CategoryView{{Name: "Work", Count: 1}}, notes, tasks,
		map[string]string{"n1": "<p><strong>bold</strong></p>"}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<title>notesync</title>")
	assert.Contains(t, html, "Signed in as <strong>&lt;b&gt;ana&lt;/b&gt;</strong>")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, `<li data-state="open" id="task-t1">Groceries`)
	assert.Contains(t, html, `<li data-state="done" id="task-t2">`)
	assert.Contains(t, html, "Dec 15, 2024 09:00")
	assert.Contains(t, html, `<a href="/category/work">Work (1)</a>`)
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("</body></html>")))
}

func TestCategoryPage(t *testing.T) {
	var buf bytes.Buffer
	notes := []models.NoteView{{ID: "n1", Title: "Essay", Category: "Study"}}
	require.NoError(t, CategoryPage("Study", notes, nil).Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, "<title>Study · notesync</title>")
	assert.Contains(t, html, "<h2>Study</h2>")
	assert.Contains(t, html, `id="note-n1"`)
}

func TestSignInPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SignInPage().Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "POST /api/auth/signin")
}
