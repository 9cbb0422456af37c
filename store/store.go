// Package store 提供 core.Store 的实现：内存、Redis、Badger。
// 此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
package store

import "github.com/rushteam/shopsense/core"

// ErrNotFound 是 core.ErrStoreNotFound 的别名，key 不存在或已过期时返回。
var ErrNotFound = core.ErrStoreNotFound
