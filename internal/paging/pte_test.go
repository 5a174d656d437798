package paging

import "testing"

func TestPTE(tt *testing.T) {
	tt.Run("never touched", func(tt *testing.T) {
		var pte PTE

		if pte.Present() || pte.Swapped() || pte.Touched() {
			tt.Errorf("zero value should be untouched, got: %s", pte)
		}
	})

	tt.Run("present", func(tt *testing.T) {
		var pte PTE

		pte.SetPresent(7)

		if !pte.Present() {
			tt.Errorf("want present, got: %s", pte)
		}

		if pte.Swapped() {
			tt.Errorf("present entry must not also be swapped: %s", pte)
		}

		if pte.Frame() != 7 {
			tt.Errorf("frame want: 7, got: %d", pte.Frame())
		}
	})

	tt.Run("swapped", func(tt *testing.T) {
		var pte PTE

		pte.SetSwapped(3)

		if !pte.Swapped() {
			tt.Errorf("want swapped, got: %s", pte)
		}

		if pte.Present() {
			tt.Errorf("swapped entry must not also be present: %s", pte)
		}

		if pte.SwapSlot() != 3 {
			tt.Errorf("slot want: 3, got: %d", pte.SwapSlot())
		}
	})

	tt.Run("present then swapped clears present", func(tt *testing.T) {
		var pte PTE

		pte.SetPresent(5)
		pte.SetSwapped(9)

		if pte.Present() {
			tt.Errorf("SetSwapped must clear present: %s", pte)
		}

		if pte.SwapSlot() != 9 {
			tt.Errorf("slot want: 9, got: %d", pte.SwapSlot())
		}
	})

	tt.Run("dirty survives SetPresent", func(tt *testing.T) {
		var pte PTE

		pte.SetPresent(1)
		pte.SetDirty()
		pte.SetPresent(2)

		if !pte.Dirty() {
			tt.Errorf("want dirty to survive a frame reassignment: %s", pte)
		}

		if pte.Frame() != 2 {
			tt.Errorf("frame want: 2, got: %d", pte.Frame())
		}
	})

	tt.Run("clear resets to never touched", func(tt *testing.T) {
		var pte PTE

		pte.SetPresent(4)
		pte.Clear()

		if pte.Touched() {
			tt.Errorf("want untouched after Clear, got: %s", pte)
		}
	})
}

func TestNewDirectory(tt *testing.T) {
	dir := NewDirectory(16)

	if len(dir) != 16 {
		tt.Errorf("len want: 16, got: %d", len(dir))
	}

	for i, pte := range dir {
		if pte.Touched() {
			tt.Errorf("entry %d: want untouched, got: %s", i, pte)
		}
	}
}
