package queue

import (
	"context"
	"testing"
	"time"

	"github.com/festivo/festivo/internal/bus"
)

func TestDebounceCoalescesBursts(t *testing.T) {
	d := NewDebouncer(50*time.Millisecond, nil)
	defer d.Close()

	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m1", Content: "hi"})
	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m2", Content: "I'll come"})
	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m3", Content: "with my wife"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := d.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "hi\nI'll come\nwith my wife" {
		t.Fatalf("unexpected coalesced content: %q", msg.Content)
	}
	if msg.SenderID != "+551" {
		t.Fatalf("unexpected sender: %q", msg.SenderID)
	}
}

func TestDebounceSeparatesSenders(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Close()

	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "a1", Content: "from one"})
	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+552", MessageID: "b1", Content: "from two"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := map[string]string{}
	for i := 0; i < 2; i++ {
		msg, err := d.Consume(ctx)
		if err != nil {
			t.Fatal(err)
		}
		got[msg.SenderID] = msg.Content
	}
	if got["+551"] != "from one" || got["+552"] != "from two" {
		t.Fatalf("senders were merged: %v", got)
	}
}

func TestDebounceDropsDuplicates(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	defer d.Close()

	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m1", Content: "once"})
	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m1", Content: "once"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := d.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "once" {
		t.Fatalf("duplicate not dropped: %q", msg.Content)
	}

	// Nothing further pending.
	short, cancel2 := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel2()
	if _, err := d.Consume(short); err == nil {
		t.Fatal("expected no second turn")
	}
}

func TestDebounceWindowExtendsOnActivity(t *testing.T) {
	d := NewDebouncer(60*time.Millisecond, nil)
	defer d.Close()

	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m1", Content: "part one"})
	time.Sleep(40 * time.Millisecond)
	d.Add(&bus.InboundMessage{Channel: "whatsapp", SenderID: "+551", MessageID: "m2", Content: "part two"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := d.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "part one\npart two" {
		t.Fatalf("window did not extend: %q", msg.Content)
	}
}

func TestMemoryBufferImplementsBuffer(t *testing.T) {
	b := NewMemoryBuffer(20*time.Millisecond, nil)
	defer b.Close()

	if err := b.Enqueue(context.Background(), &bus.InboundMessage{
		Channel: "whatsapp", SenderID: "+551", MessageID: "m1", Content: "hello",
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := b.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Content != "hello" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}
}
