package idl

import "testing"

func BenchmarkCompile(b *testing.B) {
	src := []byte(geoIDL)
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Compile("geo.avdl", src, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileAndSerialize(b *testing.B) {
	src := []byte(geoIDL)
	b.ReportAllocs()
	for b.Loop() {
		p, err := Compile("geo.avdl", src, nil)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := p.JSON(true); err != nil {
			b.Fatal(err)
		}
	}
}
