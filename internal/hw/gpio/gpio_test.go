package gpio

import "testing"

func TestMockDriver_ReadsLastWrite(t *testing.T) {
	m := NewMockDriver()

	if lvl, _ := m.ReadPin(4); lvl != Low {
		t.Errorf("unwritten pin should read LOW, got %v", lvl)
	}
	if err := m.WritePin(4, High); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	if lvl, _ := m.ReadPin(4); lvl != High {
		t.Errorf("pin 4 = %v, want HIGH", lvl)
	}
	if err := m.WritePin(4, Low); err != nil {
		t.Fatalf("WritePin: %v", err)
	}
	if lvl, _ := m.ReadPin(4); lvl != Low {
		t.Errorf("pin 4 = %v, want LOW", lvl)
	}
}

func TestMockDriver_SetForcesInput(t *testing.T) {
	m := NewMockDriver()
	m.Set(23, High)
	lvl, err := m.ReadPin(23)
	if err != nil {
		t.Fatalf("ReadPin: %v", err)
	}
	if lvl != High {
		t.Errorf("pin 23 = %v, want HIGH", lvl)
	}
}

func TestMockDriver_ZeroValueUsable(t *testing.T) {
	var m MockDriver
	if err := m.WritePin(1, High); err != nil {
		t.Fatalf("WritePin on zero MockDriver: %v", err)
	}
	if lvl, _ := m.ReadPin(1); lvl != High {
		t.Errorf("pin 1 = %v, want HIGH", lvl)
	}
}

func TestNewDriver_Mock(t *testing.T) {
	d, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := d.(*MockDriver); !ok {
		t.Errorf("NewDriver(true) = %T, want *MockDriver", d)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestLevel_String(t *testing.T) {
	if High.String() != "1" || Low.String() != "0" {
		t.Errorf("High=%q Low=%q, want \"1\" and \"0\"", High.String(), Low.String())
	}
}
