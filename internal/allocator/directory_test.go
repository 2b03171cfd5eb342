package allocator

import "testing"

func TestNewDirectory(t *testing.T) {
	addr, err := newDirectory(8)
	if err != nil {
		t.Fatalf("newDirectory: %v", err)
	}

	if dirCapacity(addr) != 8 {
		t.Fatalf("dirCapacity = %d, want 8", dirCapacity(addr))
	}

	for i := uintptr(0); i < 8; i++ {
		if dirSlot(addr, i) != 0 {
			t.Fatalf("slot %d not empty on fresh directory", i)
		}
	}
}

func TestGrowDirectory(t *testing.T) {
	addr, err := newDirectory(4)
	if err != nil {
		t.Fatalf("newDirectory: %v", err)
	}

	pool, _, err := newPool(64, DefaultPoolSize)
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}

	setDirSlot(addr, 2, pool)

	grown, err := growDirectory(addr)
	if err != nil {
		t.Fatalf("growDirectory: %v", err)
	}

	if dirCapacity(grown) != 8 {
		t.Fatalf("grown capacity = %d, want 8", dirCapacity(grown))
	}

	if dirSlot(grown, 2) != pool {
		t.Fatal("grown directory lost an existing slot")
	}
}

func TestChangePoolFillsEmptySlot(t *testing.T) {
	dirAddr, err := newDirectory(4)
	if err != nil {
		t.Fatalf("newDirectory: %v", err)
	}

	curPool, _, err := newPool(64, DefaultPoolSize)
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}

	setDirSlot(dirAddr, 0, curPool)

	newDir, newPoolAddr, err := changePool(dirAddr, curPool, 128, DefaultPoolSize)
	if err != nil {
		t.Fatalf("changePool: %v", err)
	}

	if newDir != dirAddr {
		t.Fatal("changePool grew the directory when a free slot existed")
	}

	if newPoolAddr == curPool {
		t.Fatal("changePool returned the pool it was asked to move away from")
	}

	if dirSlot(dirAddr, 1) != newPoolAddr {
		t.Fatal("changePool did not record the new pool in the directory")
	}
}

func TestChangePoolGrowsWhenFull(t *testing.T) {
	dirAddr, err := newDirectory(1)
	if err != nil {
		t.Fatalf("newDirectory: %v", err)
	}

	curPool, _, err := newPool(64, DefaultPoolSize)
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}

	setDirSlot(dirAddr, 0, curPool)

	newDir, newPoolAddr, err := changePool(dirAddr, curPool, 128, DefaultPoolSize)
	if err != nil {
		t.Fatalf("changePool: %v", err)
	}

	if newDir == dirAddr {
		t.Fatal("changePool did not grow a full directory")
	}

	if dirCapacity(newDir) != 2 {
		t.Fatalf("grown capacity = %d, want 2", dirCapacity(newDir))
	}

	if newPoolAddr == curPool {
		t.Fatal("changePool reused the full pool after growing")
	}
}
