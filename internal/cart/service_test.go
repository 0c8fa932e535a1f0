package cart

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusprint/campusprint-backend/pkg/config"
	"github.com/campusprint/campusprint-backend/pkg/db"
	"github.com/campusprint/campusprint-backend/pkg/db/dbtest"
	"github.com/campusprint/campusprint-backend/pkg/db/models"
	pkgerrors "github.com/campusprint/campusprint-backend/pkg/errors"
	"github.com/campusprint/campusprint-backend/pkg/logger"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string]string
	failAfter int
	uploads   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]string{}, failAfter: -1}
}

func (m *memoryStore) Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter >= 0 && m.uploads >= m.failAfter {
		return "", errors.New("storage unavailable")
	}
	m.uploads++
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[object] = string(data)
	return "https://cdn.test/" + object, nil
}

func (m *memoryStore) DeleteObject(ctx context.Context, bucket, object string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, object)
	return nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type cartFixture struct {
	conn    *gorm.DB
	svc     Service
	store   *memoryStore
	student models.User
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	conn := dbtest.Open(t)
	campus := dbtest.SeedCampus(t, conn, false)
	store := newMemoryStore()
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), store, config.UploadsConfig{
		MaxUploadMB:  1,
		AllowedTypes: []string{"application/pdf", "image/png"},
		KeyPrefix:    "cart",
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return cartFixture{conn: conn, svc: svc, store: store, student: campus.Student}
}

func pdf(name, body string) UploadFile {
	return UploadFile{Filename: name, ContentType: "application/pdf", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestAddItemsUploadsAndPersists(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	items, err := f.svc.AddItems(ctx, f.student.ID, AddItemsInput{
		Files: []UploadFile{pdf("notes.PDF", "a"), pdf("lab.pdf", "b")},
		Metadata: []ItemMetadata{
			{Name: "Notes", FileType: "pdf", Coloured: true, Quantity: 2, Price: 40},
			{Name: "Lab", FileType: "pdf", Spiral: true, Quantity: 1, Price: 25},
		},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, strings.HasPrefix(items[0].FileURL, "https://cdn.test/cart/"+f.student.ID.String()+"/"))
	assert.True(t, strings.HasSuffix(items[0].FileURL, ".pdf"))
	assert.Equal(t, 2, f.store.count())

	cart, err := f.svc.Get(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(65), cart.Subtotal)

	_, err = f.svc.AddItems(ctx, f.student.ID, AddItemsInput{
		Files:    []UploadFile{pdf("more.pdf", "c")},
		Metadata: []ItemMetadata{{Name: "More", FileType: "pdf", Quantity: 1, Price: 5}},
	})
	require.NoError(t, err)

	var carts int64
	require.NoError(t, f.conn.Model(&models.Cart{}).Where("user_id = ?", f.student.ID).Count(&carts).Error)
	assert.Equal(t, int64(1), carts, "a student owns a single cart")
}

func TestAddItemsValidation(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	cases := []AddItemsInput{
		{},
		{Files: []UploadFile{pdf("a.pdf", "a")}},
		{Files: []UploadFile{pdf("a.pdf", "a")}, Metadata: []ItemMetadata{{Name: "A", FileType: "pdf", Quantity: 0}}},
		{Files: []UploadFile{pdf("a.pdf", "a")}, Metadata: []ItemMetadata{{Name: "A", FileType: "pdf", Quantity: 1, Price: -1}}},
		{Files: []UploadFile{{Filename: "a.exe", ContentType: "application/octet-stream", Body: strings.NewReader("x")}}, Metadata: []ItemMetadata{{Name: "A", FileType: "exe", Quantity: 1}}},
		{Files: []UploadFile{{Filename: "big.pdf", ContentType: "application/pdf", Size: 2 << 20, Body: strings.NewReader("x")}}, Metadata: []ItemMetadata{{Name: "A", FileType: "pdf", Quantity: 1}}},
	}
	for i, input := range cases {
		_, err := f.svc.AddItems(ctx, f.student.ID, input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "case %d: %v", i, err)
	}
	assert.Zero(t, f.store.count())
}

func TestAddItemsCleansUpOnUploadFailure(t *testing.T) {
	f := newCartFixture(t)
	f.store.failAfter = 1

	_, err := f.svc.AddItems(context.Background(), f.student.ID, AddItemsInput{
		Files: []UploadFile{pdf("a.pdf", "a"), pdf("b.pdf", "b")},
		Metadata: []ItemMetadata{
			{Name: "A", FileType: "pdf", Quantity: 1, Price: 1},
			{Name: "B", FileType: "pdf", Quantity: 1, Price: 1},
		},
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Zero(t, f.store.count())

	var items int64
	require.NoError(t, f.conn.Model(&models.CartItem{}).Count(&items).Error)
	assert.Zero(t, items)
}

func TestDeleteItem(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.student.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	items, err := f.svc.AddItems(ctx, f.student.ID, AddItemsInput{
		Files:    []UploadFile{pdf("a.pdf", "a")},
		Metadata: []ItemMetadata{{Name: "A", FileType: "pdf", Quantity: 1, Price: 10}},
	})
	require.NoError(t, err)

	other := dbtest.SeedUser(t, f.conn, "student", nil)
	err = f.svc.DeleteItem(ctx, other.ID, items[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "another student's item is invisible")

	require.NoError(t, f.svc.DeleteItem(ctx, f.student.ID, items[0].ID))
	assert.Zero(t, f.store.count())

	err = f.svc.DeleteItem(ctx, f.student.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cart, err := f.svc.Get(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
