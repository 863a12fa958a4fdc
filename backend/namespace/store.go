package namespace

import (
	"context"
	"fmt"
	"strings"

	"github.com/mwantia/flatfs/backend"
)

// Separator splits the namespace from the key.
const Separator = ":"

// NamespaceStore confines a store to the keys of a single namespace, so
// several filesystems can share one store without seeing each other.
type NamespaceStore struct {
	store     backend.Store
	namespace string
}

func NewNamespace(store backend.Store, namespace string) (*NamespaceStore, error) {
	if namespace == "" || strings.Contains(namespace, Separator) {
		return nil, fmt.Errorf("invalid namespace '%s'", namespace)
	}

	return &NamespaceStore{
		store:     store,
		namespace: namespace,
	}, nil
}

// NamespacedKey combines namespace and key into "namespace:key".
func NamespacedKey(namespace, key string) string {
	return namespace + Separator + key
}

func (ns *NamespaceStore) key(key string) string {
	return NamespacedKey(ns.namespace, key)
}

func (ns *NamespaceStore) Name() string {
	return ns.store.Name()
}

func (ns *NamespaceStore) Namespace() string {
	return ns.namespace
}

func (ns *NamespaceStore) Open(ctx context.Context) error {
	return ns.store.Open(ctx)
}

func (ns *NamespaceStore) Close(ctx context.Context) error {
	return ns.store.Close(ctx)
}

func (ns *NamespaceStore) CreateObject(ctx context.Context, key string) error {
	return ns.store.CreateObject(ctx, ns.key(key))
}

func (ns *NamespaceStore) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	handle, err := ns.store.OpenObject(ctx, ns.key(key))
	if err != nil {
		return nil, err
	}

	return &namespaceHandle{Handle: handle, key: key}, nil
}

func (ns *NamespaceStore) DeleteObject(ctx context.Context, key string) error {
	return ns.store.DeleteObject(ctx, ns.key(key))
}

func (ns *NamespaceStore) RenameObject(ctx context.Context, oldKey, newKey string) error {
	return ns.store.RenameObject(ctx, ns.key(oldKey), ns.key(newKey))
}

// ListKeys returns the keys of this namespace without the namespace.
func (ns *NamespaceStore) ListKeys(ctx context.Context) ([]string, error) {
	return ns.ListKeysWithPrefix(ctx, "")
}

func (ns *NamespaceStore) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys, err := backend.ListByPrefix(ctx, ns.store, ns.key(prefix))
	if err != nil {
		return nil, err
	}

	trim := ns.key("")
	for i, key := range keys {
		keys[i] = strings.TrimPrefix(key, trim)
	}

	return keys, nil
}

// namespaceHandle reports the key as seen through the namespace.
type namespaceHandle struct {
	backend.Handle
	key string
}

func (h *namespaceHandle) Key() string {
	return h.key
}
