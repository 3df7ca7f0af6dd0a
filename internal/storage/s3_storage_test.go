package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey(PrefixListingImages, "64b7f0c2a1b2c3d4e5f60718", "Front View (1).JPG")

	assert.True(t, strings.HasPrefix(key, "listings/64b7f0c2a1b2c3d4e5f60718/"), key)
	assert.True(t, strings.HasSuffix(key, "_front-view-1.jpg"), key)
	assert.NotEqual(t, key, ObjectKey(PrefixListingImages, "64b7f0c2a1b2c3d4e5f60718", "Front View (1).JPG"))
}

func TestObjectKey_StripsPathsAndEmptyNames(t *testing.T) {
	key := ObjectKey(PrefixShippingDocuments, "v1", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(key, "documents/v1/"), key)
	assert.NotContains(t, key, "..")
	assert.True(t, strings.HasSuffix(key, "_passwd"), key)

	assert.True(t, strings.HasSuffix(ObjectKey(PrefixShippingDocuments, "v1", "###.pdf"), "_file.pdf"))
}

func TestPublicURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/listings/a.jpg", PublicURL("https://cdn.example.com/", "/listings/a.jpg"))
	assert.Equal(t, "listings/a.jpg", PublicURL("", "listings/a.jpg"))
}
