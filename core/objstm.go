package core

import "fmt"

// ObjectStream holds the objects compressed into a /Type /ObjStm stream.
type ObjectStream struct {
	data    []byte
	first   int
	numbers []int
	offsets []int
}

// NewObjectStream decodes s and reads its header of /N number and offset
// pairs.
func NewObjectStream(s *Stream) (*ObjectStream, error) {
	if t, _ := s.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("object stream has /Type %q", t)
	}
	n, ok := s.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream without a valid /N")
	}
	first, ok := s.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream without a valid /First")
	}

	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("object stream: %w", err)
	}
	if int(first) > len(data) {
		return nil, fmt.Errorf("object stream /First %d beyond %d bytes", first, len(data))
	}

	os := &ObjectStream{
		data:    data,
		first:   int(first),
		numbers: make([]int, 0, n),
		offsets: make([]int, 0, n),
	}
	p := NewParser(data[:first])
	for i := 0; i < int(n); i++ {
		num, err1 := p.ParseObject()
		off, err2 := p.ParseObject()
		numInt, ok1 := num.(Int)
		offInt, ok2 := off.(Int)
		if err1 != nil || err2 != nil || !ok1 || !ok2 {
			return nil, fmt.Errorf("object stream header entry %d is malformed", i)
		}
		os.numbers = append(os.numbers, int(numInt))
		os.offsets = append(os.offsets, int(offInt))
	}
	return os, nil
}

// Len returns the number of objects in the stream.
func (os *ObjectStream) Len() int { return len(os.numbers) }

// Object parses the object at index and returns it with its object number.
func (os *ObjectStream) Object(index int) (Object, int, error) {
	if index < 0 || index >= len(os.numbers) {
		return nil, 0, fmt.Errorf("object stream index %d out of range [0, %d)", index, len(os.numbers))
	}

	start := os.first + os.offsets[index]
	end := len(os.data)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1]
	}
	if start > len(os.data) || start > end {
		return nil, 0, fmt.Errorf("object stream entry %d has a bad offset", index)
	}

	obj, err := NewParser(os.data[start:end]).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object stream entry %d: %w", index, err)
	}
	return obj, os.numbers[index], nil
}

// Lookup finds object num by scanning the header.
func (os *ObjectStream) Lookup(num int) (Object, error) {
	for i, n := range os.numbers {
		if n == num {
			obj, _, err := os.Object(i)
			return obj, err
		}
	}
	return nil, fmt.Errorf("object %d not in object stream", num)
}
