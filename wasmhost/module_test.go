package wasmhost

// Minimal binary encoder for the guest modules used in these tests.

const (
	valI32 byte = 0x7f
	valI64 byte = 0x7e
	valF64 byte = 0x7c
)

const (
	opEnd       byte = 0x0b
	opCall      byte = 0x10
	opLocalGet  byte = 0x20
	opLocalTee  byte = 0x22
	opGlobalGet byte = 0x23
	opGlobalSet byte = 0x24
	opI32Const  byte = 0x41
	opI32Add    byte = 0x6a
	opI32Sub    byte = 0x6b
	opI32And    byte = 0x71
	opF64Eq     byte = 0x61
)

type funcSig struct {
	params  []byte
	results []byte
}

type importFunc struct {
	name string
	sig  funcSig
}

type localFunc struct {
	export string
	sig    funcSig
	locals []byte
	body   []byte
}

type global struct {
	export string
	init   int32
}

type dataSegment struct {
	offset int32
	bytes  []byte
}

type moduleBuilder struct {
	imports []importFunc
	funcs   []localFunc
	globals []global
	data    []dataSegment
	memory  bool
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func vec(items [][]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	out := []byte{id}
	out = append(out, uleb(uint64(len(payload)))...)
	return append(out, payload...)
}

func (s funcSig) encode() []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint64(len(s.params)))...)
	out = append(out, s.params...)
	out = append(out, uleb(uint64(len(s.results)))...)
	return append(out, s.results...)
}

// importIndex returns the function index of the named import.
func (m *moduleBuilder) importIndex(field string) uint32 {
	for i, imp := range m.imports {
		if imp.name == field {
			return uint32(i)
		}
	}
	panic("unknown import " + field)
}

// forward adds an exported function that passes its parameters to the named
// import and returns its result.
func (m *moduleBuilder) forward(export, field string) {
	idx := m.importIndex(field)
	sig := m.imports[idx].sig
	var body []byte
	for i := range sig.params {
		body = append(body, opLocalGet)
		body = append(body, uleb(uint64(i))...)
	}
	body = append(body, opCall)
	body = append(body, uleb(uint64(idx))...)
	body = append(body, opEnd)
	m.funcs = append(m.funcs, localFunc{export: export, sig: sig, body: body})
}

func (m *moduleBuilder) build() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	var types [][]byte
	for _, imp := range m.imports {
		types = append(types, imp.sig.encode())
	}
	for _, f := range m.funcs {
		types = append(types, f.sig.encode())
	}
	out = append(out, section(1, vec(types))...)

	if len(m.imports) > 0 {
		var imps [][]byte
		for i, imp := range m.imports {
			e := name(ModuleName)
			e = append(e, name(imp.name)...)
			e = append(e, 0x00)
			e = append(e, uleb(uint64(i))...)
			imps = append(imps, e)
		}
		out = append(out, section(2, vec(imps))...)
	}

	var fidx [][]byte
	for i := range m.funcs {
		fidx = append(fidx, uleb(uint64(len(m.imports)+i)))
	}
	out = append(out, section(3, vec(fidx))...)

	if m.memory {
		out = append(out, section(5, vec([][]byte{{0x00, 0x01}}))...)
	}

	if len(m.globals) > 0 {
		var gs [][]byte
		for _, g := range m.globals {
			e := []byte{valI32, 0x01, opI32Const}
			e = append(e, sleb(int64(g.init))...)
			e = append(e, opEnd)
			gs = append(gs, e)
		}
		out = append(out, section(6, vec(gs))...)
	}

	var exps [][]byte
	if m.memory {
		exps = append(exps, append(name(ExportMemory), 0x02, 0x00))
	}
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		e := append(name(f.export), 0x00)
		exps = append(exps, append(e, uleb(uint64(len(m.imports)+i))...))
	}
	for i, g := range m.globals {
		if g.export == "" {
			continue
		}
		e := append(name(g.export), 0x03)
		exps = append(exps, append(e, uleb(uint64(i))...))
	}
	out = append(out, section(7, vec(exps))...)

	var codes [][]byte
	for _, f := range m.funcs {
		var locals [][]byte
		for _, l := range f.locals {
			locals = append(locals, []byte{0x01, l})
		}
		body := append(vec(locals), f.body...)
		codes = append(codes, append(uleb(uint64(len(body))), body...))
	}
	out = append(out, section(10, vec(codes))...)

	if len(m.data) > 0 {
		var ds [][]byte
		for _, d := range m.data {
			e := []byte{0x00, opI32Const}
			e = append(e, sleb(int64(d.offset))...)
			e = append(e, opEnd)
			e = append(e, uleb(uint64(len(d.bytes)))...)
			e = append(e, d.bytes...)
			ds = append(ds, e)
		}
		out = append(out, section(11, vec(ds))...)
	}

	return out
}

const (
	validIDOffset   = 16
	invalidIDOffset = 64
	testID          = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
)

// Guest globals, in declaration order.
const (
	globalHeap = iota
	globalFrees
	globalReleased
	globalIDPtr
)

var hostImports = []importFunc{
	{"polygon_new", funcSig{nil, []byte{valI64}}},
	{"polygon_free", funcSig{[]byte{valI64}, nil}},
	{"polygon_push", funcSig{[]byte{valI64, valF64, valF64}, nil}},
	{"polygon_remove", funcSig{[]byte{valI64, valI64}, nil}},
	{"polygon_length", funcSig{[]byte{valI64}, []byte{valF64}}},
	{"polygon_points", funcSig{[]byte{valI64, valI32}, []byte{valI32}}},
	{"free_points", funcSig{[]byte{valI32}, nil}},
	{"polygon_set_points", funcSig{[]byte{valI64, valI32, valI32}, nil}},
	{"polygon_description", funcSig{[]byte{valI64}, []byte{valI32}}},
	{"free_polygon_description", funcSig{[]byte{valI32}, nil}},
	{"geobridge_live_handles", funcSig{nil, []byte{valI64}}},
	{"distance_to", funcSig{[]byte{valF64, valF64, valF64, valF64}, []byte{valF64}}},
	{"average", funcSig{[]byte{valF64, valF64}, []byte{valF64}}},
}

func incrementGlobal(idx byte) []byte {
	return []byte{opGlobalGet, idx, opI32Const, 0x01, opI32Add, opGlobalSet, idx}
}

// guestModule builds a guest with a bump allocator, exact equality, and
// counters for dealloc and release_string calls. Every host import is
// re-exported as call_<name> through a forwarding function. Exports named
// in skip are left out.
func guestModule(skip ...string) []byte {
	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}

	m := &moduleBuilder{
		imports: hostImports,
		memory:  true,
		globals: []global{
			{"heap", 1024},
			{"frees", 0},
			{"released", 0},
			{"id_ptr", validIDOffset},
		},
		data: []dataSegment{
			{validIDOffset, append([]byte(testID), 0)},
			{invalidIDOffset, append([]byte("not-a-uuid"), 0)},
		},
	}

	guestFuncs := []localFunc{
		{
			// ptr = (heap + align - 1) & -align; heap = ptr + size
			export: ExportAlloc,
			sig:    funcSig{[]byte{valI32, valI32}, []byte{valI32}},
			locals: []byte{valI32},
			body: []byte{
				opGlobalGet, globalHeap,
				opLocalGet, 1, opI32Add,
				opI32Const, 1, opI32Sub,
				opI32Const, 0, opLocalGet, 1, opI32Sub,
				opI32And,
				opLocalTee, 2,
				opLocalGet, 0, opI32Add,
				opGlobalSet, globalHeap,
				opLocalGet, 2,
				opEnd,
			},
		},
		{
			export: ExportDealloc,
			sig:    funcSig{[]byte{valI32, valI32, valI32}, nil},
			body:   append(incrementGlobal(globalFrees), opEnd),
		},
		{
			export: ExportValuesEqual,
			sig:    funcSig{[]byte{valF64, valF64, valF64, valF64}, []byte{valI32}},
			body: []byte{
				opLocalGet, 0, opLocalGet, 2, opF64Eq,
				opLocalGet, 1, opLocalGet, 3, opF64Eq,
				opI32And,
				opEnd,
			},
		},
		{
			export: ExportGenerateIdentifier,
			sig:    funcSig{nil, []byte{valI32}},
			body:   []byte{opGlobalGet, globalIDPtr, opEnd},
		},
		{
			export: ExportReleaseString,
			sig:    funcSig{[]byte{valI32}, nil},
			body:   append(incrementGlobal(globalReleased), opEnd),
		},
	}
	for _, f := range guestFuncs {
		if skipped[f.export] {
			continue
		}
		m.funcs = append(m.funcs, f)
	}

	for _, imp := range hostImports {
		m.forward("call_"+imp.name, imp.name)
	}
	return m.build()
}
