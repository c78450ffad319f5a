//go:build kheap_bump

package heap

type DefaultStrategy = BumpAllocator

const DefaultStrategyName = "bump"

func NewDefaultStrategy(memory Memory) *DefaultStrategy {
	return NewBumpAllocator()
}
