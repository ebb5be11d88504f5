package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingHook struct {
	positions []string
}

func (h *countingHook) Func(ctx HookCtx) {
	h.positions = append(h.positions, ctx.Pos.Name)
}

var (
	_ Hookable = &HookableBase{}
	_ Hook     = HookFunc(nil)
)

var _ = Describe("HookableBase", func() {
	var (
		base *HookableBase
		pos  *HookPos
	)

	BeforeEach(func() {
		base = &HookableBase{}
		pos = &HookPos{Name: "Somewhere"}
	})

	It("should invoke hooks in registration order", func() {
		var order []int
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 1) }))
		base.AcceptHook(HookFunc(func(HookCtx) { order = append(order, 2) }))

		base.InvokeHook(HookCtx{Domain: base, Pos: pos})

		Expect(order).To(Equal([]int{1, 2}))
		Expect(base.NumHooks()).To(Equal(2))
	})

	It("should pass the context through", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		base.InvokeHook(HookCtx{Pos: pos, Item: 3})

		Expect(hook.positions).To(Equal([]string{"Somewhere"}))
		Expect(base.Hooks()).To(ConsistOf(hook))
	})

	It("should panic on duplicated hook", func() {
		hook := &countingHook{}
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})
})

var _ = Describe("HookableBase with function hooks", func() {
	It("should accept the same function type twice", func() {
		base := &HookableBase{}
		calls := 0
		f := HookFunc(func(HookCtx) { calls++ })

		base.AcceptHook(f)
		base.AcceptHook(f)
		base.InvokeHook(HookCtx{Pos: &HookPos{Name: "X"}})

		Expect(calls).To(Equal(2))
	})

	It("should be usable through the Hookable interface", func() {
		var domain Hookable = &HookableBase{}
		var got HookCtx

		domain.AcceptHook(HookFunc(func(ctx HookCtx) { got = ctx }))
		domain.(*HookableBase).InvokeHook(HookCtx{Domain: domain, Item: 7})

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(domain.Hooks()).To(HaveLen(1))
		Expect(got.Domain).To(BeIdenticalTo(domain))
		Expect(got.Item).To(Equal(7))
	})

	It("should reject nil hooks", func() {
		Expect(func() { (&HookableBase{}).AcceptHook(nil) }).To(Panic())
	})
})
