// Package bookstacktest provides an in-memory BookStack instance for tests.
// It speaks the subset of the REST API the sync uses: token auth, paged
// listing, book/chapter/page reads and creates, and cover uploads.
package bookstacktest

import (
	"cmp"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faithconnect/bookstack-sync/internal/bookstack"
	"github.com/faithconnect/bookstack-sync/internal/domain"
)

// Server is a fake BookStack instance backed by maps.
type Server struct {
	*httptest.Server

	tokenID     string
	tokenSecret string

	mu       sync.Mutex
	nextID   int64
	books    map[int64]*domain.Book
	chapters map[int64]*domain.Chapter
	pages    map[int64]*domain.Page
	covers   map[int64][]byte
	failures map[string]int
	requests int
}

// NewServer starts a fake instance accepting the given token pair.
// Callers must Close it.
func NewServer(tokenID, tokenSecret string) *Server {
	s := &Server{
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
		nextID:      1,
		books:       make(map[int64]*domain.Book),
		chapters:    make(map[int64]*domain.Chapter),
		pages:       make(map[int64]*domain.Page),
		covers:      make(map[int64][]byte),
		failures:    make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.count, s.inject)
	r.Get("/uploads/covers/{id}", s.handleCover)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/books", s.handleListBooks)
		r.Post("/books", s.handleCreateBook)
		r.Get("/books/{id}", s.handleGetBook)
		r.Get("/chapters", s.handleListChapters)
		r.Post("/chapters", s.handleCreateChapter)
		r.Get("/chapters/{id}", s.handleGetChapter)
		r.Get("/pages", s.handleListPages)
		r.Post("/pages", s.handleCreatePage)
		r.Get("/pages/{id}", s.handleGetPage)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// Credentials returns a credential set that authenticates against the server.
func (s *Server) Credentials() bookstack.Credentials {
	return bookstack.NewCredentials(s.URL, s.tokenID, s.tokenSecret)
}

// Requests returns how many requests the server has received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// FailWith makes every request matching method and path answer with status
// until cleared with a zero status.
func (s *Server) FailWith(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	if status == 0 {
		delete(s.failures, key)
		return
	}
	s.failures[key] = status
}

// AddBook stores b, assigning an id when it has none, and returns the id.
func (s *Server) AddBook(b domain.Book) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.assign(b.ID)
	b.Contents = nil
	b.Cover = nil
	s.books[b.ID] = &b
	return b.ID
}

// AddChapter stores c and returns its id.
func (s *Server) AddChapter(c domain.Chapter) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.assign(c.ID)
	c.Pages = nil
	s.chapters[c.ID] = &c
	return c.ID
}

// AddPage stores p and returns its id.
func (s *Server) AddPage(p domain.Page) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.assign(p.ID)
	s.pages[p.ID] = &p
	return p.ID
}

// SetCover attaches a cover image to a book.
func (s *Server) SetCover(bookID int64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.covers[bookID] = data
}

// Cover returns the cover bytes stored for a book.
func (s *Server) Cover(bookID int64) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.covers[bookID]
}

// Book returns a book with its contents resolved, as GET /api/books/{id} would.
func (s *Server) Book(id int64) (*domain.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookWithContents(id)
}

// Books returns every stored book ordered by id.
func (s *Server) Books() []domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b domain.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Chapters returns the chapters of a book ordered by priority.
func (s *Server) Chapters(bookID int64) []domain.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chaptersOf(bookID)
}

// Pages returns the pages of a book ordered by priority, including chapter pages.
func (s *Server) Pages(bookID int64) []domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Page
	for _, p := range s.pages {
		if p.BookID == bookID {
			out = append(out, *p)
		}
	}
	sortPages(out)
	return out
}

// SampleBook holds the ids created by SeedSampleBook.
type SampleBook struct {
	BookID    int64
	ChapterID int64
	// PageIDs lists the chapter pages followed by the standalone page.
	PageIDs []int64
}

// SeedSampleBook creates a small book: a chapter with two pages followed by
// one standalone page, with tags throughout.
func (s *Server) SeedSampleBook() SampleBook {
	bookID := s.AddBook(domain.Book{
		Name:            "Operations Guide",
		Slug:            "operations-guide",
		DescriptionHTML: "<p>How we <strong>run</strong> things</p>",
		Tags:            []domain.Tag{{Name: "team", Value: "ops", Order: 0}},
	})
	chapterID := s.AddChapter(domain.Chapter{
		BookID:   bookID,
		Name:     "Getting Started",
		Priority: 1,
		Tags:     []domain.Tag{{Name: "level", Value: "intro"}},
	})
	welcome := s.AddPage(domain.Page{
		BookID: bookID, ChapterID: &chapterID, Name: "Welcome", Priority: 1,
		HTML: "<h1>Welcome</h1><p>Read this first.</p>",
	})
	install := s.AddPage(domain.Page{
		BookID: bookID, ChapterID: &chapterID, Name: "Install", Priority: 2,
		Markdown: "# Install\n\nRun the installer.",
	})
	faq := s.AddPage(domain.Page{
		BookID: bookID, Name: "FAQ", Priority: 2,
		HTML: "<p>Questions</p>",
		Tags: []domain.Tag{{Name: "kind", Value: "reference"}},
	})
	return SampleBook{BookID: bookID, ChapterID: chapterID, PageIDs: []int64{welcome, install, faq}}
}

func (s *Server) assign(id int64) int64 {
	if id == 0 {
		id = s.nextID
	}
	if id >= s.nextID {
		s.nextID = id + 1
	}
	return id
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeError(w, status, http.StatusText(status), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	want := fmt.Sprintf("Token %s:%s", s.tokenID, s.tokenSecret)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, "The owner of the used API token does not have permission to make API calls", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSuffix(chi.URLParam(r, "id"), ".png"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	data := s.Cover(id)
	if data == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books := s.Books()
	for i := range books {
		books[i].Tags = nil
	}
	writeList(w, r, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	book, found := s.bookWithContents(id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var (
		book  domain.Book
		cover []byte
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		book.Name = r.FormValue("name")
		book.Slug = r.FormValue("slug")
		book.Description = r.FormValue("description")
		book.DescriptionHTML = r.FormValue("description_html")
		if v := r.FormValue("default_template_id"); v != "" {
			tid, _ := strconv.ParseInt(v, 10, 64)
			book.DefaultTemplateID = &tid
		}
		book.Tags = formTags(r)
		if f, _, err := r.FormFile("image"); err == nil {
			cover, _ = io.ReadAll(f)
			_ = f.Close()
		}
	} else if err := json.UnmarshalRead(r.Body, &book); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	if book.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"name": {"The name field is required."}})
		return
	}

	book.ID = 0
	id := s.AddBook(book)
	if cover != nil {
		s.SetCover(id, cover)
	}

	s.mu.Lock()
	created, _ := s.bookWithContents(id)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	bookID, _ := strconv.ParseInt(r.URL.Query().Get("filter[book_id]"), 10, 64)
	s.mu.Lock()
	var chapters []domain.Chapter
	if bookID != 0 {
		chapters = s.chaptersOf(bookID)
	} else {
		for _, c := range s.chapters {
			chapters = append(chapters, *c)
		}
		sortChapters(chapters)
	}
	s.mu.Unlock()
	writeList(w, r, chapters)
}

func (s *Server) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, found := s.chapters[id]
	if !found {
		writeError(w, http.StatusNotFound, "Chapter not found", nil)
		return
	}
	out := *c
	out.Pages = s.pageSummaries(id)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateChapter(w http.ResponseWriter, r *http.Request) {
	var c domain.Chapter
	if err := json.UnmarshalRead(r.Body, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if c.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"name": {"The name field is required."}})
		return
	}

	s.mu.Lock()
	_, bookExists := s.books[c.BookID]
	s.mu.Unlock()
	if !bookExists {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"book_id": {"The selected book id is invalid."}})
		return
	}

	c.ID = 0
	c.CreatedAt = time.Now().UTC()
	id := s.AddChapter(c)
	c.ID = id
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	bookID, _ := strconv.ParseInt(r.URL.Query().Get("filter[book_id]"), 10, 64)
	pages := s.Pages(bookID)
	for i := range pages {
		pages[i].HTML, pages[i].Markdown = "", ""
	}
	writeList(w, r, pages)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	p, found := s.pages[id]
	var out domain.Page
	if found {
		out = *p
	}
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Page not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var p domain.Page
	if err := json.UnmarshalRead(r.Body, &p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	invalid := map[string][]string{}
	if p.Name == "" {
		invalid["name"] = []string{"The name field is required."}
	}
	if p.HTML == "" && p.Markdown == "" {
		invalid["html"] = []string{"The html field is required when markdown is not present."}
	}

	s.mu.Lock()
	if p.InChapter() {
		c, ok := s.chapters[*p.ChapterID]
		if !ok {
			invalid["chapter_id"] = []string{"The selected chapter id is invalid."}
		} else {
			p.BookID = c.BookID
		}
	} else if _, ok := s.books[p.BookID]; !ok {
		invalid["book_id"] = []string{"The selected book id is invalid."}
	}
	s.mu.Unlock()

	if len(invalid) > 0 {
		writeError(w, http.StatusUnprocessableEntity, "The given data was invalid.", invalid)
		return
	}

	p.ID = 0
	p.CreatedAt = time.Now().UTC()
	p.ID = s.AddPage(p)
	writeJSON(w, http.StatusOK, p)
}

// bookWithContents resolves a book's ordered content list. Callers hold mu.
func (s *Server) bookWithContents(id int64) (*domain.Book, bool) {
	b, ok := s.books[id]
	if !ok {
		return nil, false
	}
	out := *b
	out.Tags = domain.CloneTags(b.Tags)

	if data, ok := s.covers[id]; ok && data != nil {
		out.Cover = &domain.Cover{
			ID:         id,
			Name:       "cover.png",
			URL:        fmt.Sprintf("%s/uploads/covers/%d.png", s.URL, id),
			Path:       fmt.Sprintf("/uploads/covers/%d.png", id),
			Type:       "cover_book",
			UploadedTo: id,
		}
	}

	type entry struct {
		priority int
		ref      domain.ContentRef
	}
	var entries []entry
	for _, c := range s.chaptersOf(id) {
		entries = append(entries, entry{c.Priority, domain.ContentRef{
			ID: c.ID, Type: "chapter", Kind: domain.ContentChapter,
			Name: c.Name, Slug: c.Slug, BookID: id, Pages: s.pageSummaries(c.ID),
		}})
	}
	for _, p := range s.pages {
		if p.BookID == id && !p.InChapter() {
			entries = append(entries, entry{p.Priority, domain.ContentRef{
				ID: p.ID, Type: "page", Kind: domain.ContentPage,
				Name: p.Name, Slug: p.Slug, BookID: id, Draft: p.Draft, Template: p.Template,
			}})
		}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		if c := cmp.Compare(a.priority, b.priority); c != 0 {
			return c
		}
		// BookStack lists chapters before pages of equal priority.
		if a.ref.Kind != b.ref.Kind {
			return cmp.Compare(a.ref.Kind, b.ref.Kind)
		}
		return cmp.Compare(a.ref.ID, b.ref.ID)
	})
	for _, e := range entries {
		out.Contents = append(out.Contents, e.ref)
	}
	return &out, true
}

func (s *Server) chaptersOf(bookID int64) []domain.Chapter {
	var out []domain.Chapter
	for _, c := range s.chapters {
		if c.BookID == bookID {
			out = append(out, *c)
		}
	}
	sortChapters(out)
	return out
}

func (s *Server) pageSummaries(chapterID int64) []domain.PageSummary {
	var pages []domain.Page
	for _, p := range s.pages {
		if p.ChapterID != nil && *p.ChapterID == chapterID {
			pages = append(pages, *p)
		}
	}
	sortPages(pages)
	out := make([]domain.PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, domain.PageSummary{
			ID: p.ID, Name: p.Name, Slug: p.Slug, BookID: p.BookID,
			ChapterID: chapterID, Draft: p.Draft, Template: p.Template,
		})
	}
	return out
}

func sortChapters(cs []domain.Chapter) {
	slices.SortFunc(cs, func(a, b domain.Chapter) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})
}

func sortPages(ps []domain.Page) {
	slices.SortFunc(ps, func(a, b domain.Page) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.ID, b.ID))
	})
}

func formTags(r *http.Request) []domain.Tag {
	var tags []domain.Tag
	for i := 0; ; i++ {
		prefix := fmt.Sprintf("tags[%d]", i)
		name := r.FormValue(prefix + "[name]")
		if name == "" {
			return tags
		}
		order, _ := strconv.Atoi(r.FormValue(prefix + "[order]"))
		tags = append(tags, domain.Tag{Name: name, Value: r.FormValue(prefix + "[value]"), Order: order})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not found", nil)
		return 0, false
	}
	return id, true
}

func writeList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	total := len(items)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count <= 0 {
		count = 100
	}
	offset = min(max(offset, 0), total)
	end := min(offset+count, total)

	page := items[offset:end]
	if page == nil {
		page = []T{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": page, "total": total})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, v)
}

func writeError(w http.ResponseWriter, status int, message string, validation map[string][]string) {
	body := map[string]any{"code": status, "message": message}
	if validation != nil {
		body["validation"] = validation
	}
	writeJSON(w, status, map[string]any{"error": body})
}
