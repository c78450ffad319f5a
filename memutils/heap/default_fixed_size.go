//go:build !kheap_bump && !kheap_linked_list

package heap

// DefaultStrategy is the strategy the kernel heap uses in this build. Build with the kheap_bump
// or kheap_linked_list tag to select a different one.
type DefaultStrategy = FixedSizeBlockAllocator

// DefaultStrategyName is the Name of DefaultStrategy
const DefaultStrategyName = "fixed_size_block"

// NewDefaultStrategy creates an uninitialized DefaultStrategy storing its bookkeeping through memory
func NewDefaultStrategy(memory Memory) *DefaultStrategy {
	return NewFixedSizeBlockAllocator(memory)
}
