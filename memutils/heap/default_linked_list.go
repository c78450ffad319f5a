//go:build kheap_linked_list && !kheap_bump

package heap

type DefaultStrategy = LinkedListAllocator

const DefaultStrategyName = "linked_list"

func NewDefaultStrategy(memory Memory) *DefaultStrategy {
	return NewLinkedListAllocator(memory)
}
