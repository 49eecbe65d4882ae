package cache

import "github.com/gogpu/tilebuf/tile"

// lruNode is a node in a doubly-linked LRU list.
type lruNode struct {
	key  tile.Key
	prev *lruNode
	next *lruNode
}

// lruList orders the resident tiles of one shard by recency.
// The head is the most recently used, the tail the least recently used.
// The list is not thread-safe; the shard lock guards it.
type lruList struct {
	head *lruNode
	tail *lruNode
	len  int
}

// Len returns the number of nodes in the list.
func (l *lruList) Len() int {
	return l.len
}

// PushFront adds a new node at the front and returns it.
func (l *lruList) PushFront(key tile.Key) *lruNode {
	node := &lruNode{key: key}
	l.linkFront(node)
	return node
}

// MoveToFront marks node as most recently used.
func (l *lruList) MoveToFront(node *lruNode) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// Remove removes node from the list.
func (l *lruList) Remove(node *lruNode) {
	if node == nil {
		return
	}
	l.unlink(node)
}

// Back returns the least recently used node, or nil.
func (l *lruList) Back() *lruNode {
	return l.tail
}

func (l *lruList) linkFront(node *lruNode) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

// unlink detaches node and clears its pointers.
func (l *lruList) unlink(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
