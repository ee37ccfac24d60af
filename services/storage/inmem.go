package storagesvc

import (
	"context"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core"
)

// inmemService keeps blobs in memory. It backs tests and local development.
type inmemService struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

var _ core.BlobService = (*inmemService)(nil)

func NewInmemService(baseURL string) *inmemService {
	return &inmemService{objects: make(map[string][]byte), baseURL: baseURL}
}

func (svc *inmemService) Put(ctx context.Context, key string, up core.Upload) (string, error) {
	data, err := ioutil.ReadAll(up.Content)
	if err != nil {
		return "", errors.Wrap(err, "reading upload")
	}
	svc.mu.Lock()
	svc.objects[key] = data
	svc.mu.Unlock()
	return fmt.Sprintf("%s/%s", svc.baseURL, key), nil
}

func (svc *inmemService) Delete(ctx context.Context, key string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.objects[key]; !ok {
		return errors.New("object not found")
	}
	delete(svc.objects, key)
	return nil
}

// Get returns a stored blob, for assertions in tests.
func (svc *inmemService) Get(key string) ([]byte, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	data, ok := svc.objects[key]
	return data, ok
}
