package consul

import (
	"context"
	"errors"
	"strings"
	"syscall"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/flatfs/backend"
	"github.com/mwantia/flatfs/data"
)

var errConflict = errors.New("modify index changed concurrently")

// get must be called while holding the backend lock.
func (cb *ConsulBackend) get(ctx context.Context, op, key string) (*api.KVPair, error) {
	pair, _, err := cb.kv.Get(cb.buildKey(key), queryOptions(ctx))
	if err != nil {
		return nil, backend.NewError(op, key, "consul", err)
	}
	if pair == nil {
		return nil, backend.ErrNotFound
	}

	return pair, nil
}

// update rewrites the value of key with a check-and-set on its modify index.
func (cb *ConsulBackend) update(ctx context.Context, op, key string, modify func([]byte) []byte) error {
	pair, err := cb.get(ctx, op, key)
	if err != nil {
		return err
	}

	pair.Value = modify(pair.Value)
	ok, _, err := cb.kv.CAS(pair, writeOptions(ctx))
	if err != nil {
		return backend.NewError(op, key, "consul", err)
	}
	if !ok {
		return &backend.Error{
			Op:    op,
			Key:   key,
			Code:  "cas",
			Errno: syscall.EAGAIN,
			Err:   errConflict,
		}
	}

	return nil
}

func (cb *ConsulBackend) CreateObject(ctx context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	// A modify index of 0 only succeeds if the key does not exist yet
	ok, _, err := cb.kv.CAS(&api.KVPair{
		Key:         cb.buildKey(key),
		Value:       []byte{},
		ModifyIndex: 0,
	}, writeOptions(ctx))
	if err != nil {
		return backend.NewError("create", key, "consul", err)
	}
	if !ok {
		return backend.ErrExists
	}

	return nil
}

func (cb *ConsulBackend) OpenObject(ctx context.Context, key string) (backend.Handle, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if _, err := cb.get(ctx, "open", key); err != nil {
		return nil, err
	}

	cb.locks.Lock(key)
	return &consulHandle{
		backend: cb,
		id:      data.NewID(),
		key:     key,
	}, nil
}

func (cb *ConsulBackend) DeleteObject(ctx context.Context, key string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if _, err := cb.get(ctx, "delete", key); err != nil {
		return err
	}
	if cb.locks.Locked(key) {
		return backend.ErrLocked
	}

	if _, err := cb.kv.Delete(cb.buildKey(key), writeOptions(ctx)); err != nil {
		return backend.NewError("delete", key, "consul", err)
	}

	return nil
}

// RenameObject moves the value within one transaction, which fails as a
// whole if the destination appeared or the source changed meanwhile.
func (cb *ConsulBackend) RenameObject(ctx context.Context, oldKey, newKey string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	pair, err := cb.get(ctx, "rename", oldKey)
	if err != nil {
		return err
	}
	if cb.locks.Locked(oldKey) {
		return backend.ErrLocked
	}
	if oldKey == newKey {
		return nil
	}

	ops := api.TxnOps{
		&api.TxnOp{KV: &api.KVTxnOp{Verb: api.KVCheckNotExists, Key: cb.buildKey(newKey)}},
		&api.TxnOp{KV: &api.KVTxnOp{Verb: api.KVCheckIndex, Key: pair.Key, Index: pair.ModifyIndex}},
		&api.TxnOp{KV: &api.KVTxnOp{Verb: api.KVSet, Key: cb.buildKey(newKey), Value: pair.Value}},
		&api.TxnOp{KV: &api.KVTxnOp{Verb: api.KVDelete, Key: pair.Key}},
	}

	ok, response, _, err := cb.client.Txn().Txn(ops, queryOptions(ctx))
	if err != nil {
		return backend.NewError("rename", oldKey, "consul", err)
	}
	if !ok {
		for _, txnErr := range response.Errors {
			if txnErr.OpIndex == 0 {
				return backend.ErrExists
			}
		}
		return &backend.Error{
			Op:    "rename",
			Key:   oldKey,
			Code:  "txn",
			Errno: syscall.EAGAIN,
			Err:   errConflict,
		}
	}

	return nil
}

func (cb *ConsulBackend) ListKeys(ctx context.Context) ([]string, error) {
	return cb.ListKeysWithPrefix(ctx, "")
}

func (cb *ConsulBackend) ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	consulKeys, _, err := cb.kv.Keys(cb.buildKey(prefix), "", queryOptions(ctx))
	if err != nil {
		return nil, backend.NewError("list", prefix, "consul", err)
	}

	keys := make([]string, 0, len(consulKeys))
	for _, consulKey := range consulKeys {
		key := strings.TrimPrefix(consulKey, cb.config.Prefix)
		if key != "" {
			keys = append(keys, key)
		}
	}

	return keys, nil
}
