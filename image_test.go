package rgraph

import "testing"

// hasImageDependency's table covers every ordered pair of the three usage
// kinds; only sampled-after-sampled carries no ordering requirement.
func TestHasImageDependency(t *testing.T) {
	kinds := []imageUsage{usageColorAttachment, usageDepthStencilAttachment, usageSampled}
	names := map[imageUsage]string{
		usageColorAttachment:        "color",
		usageDepthStencilAttachment: "depthStencil",
		usageSampled:                "sampled",
	}

	for _, src := range kinds {
		for _, dst := range kinds {
			want := !(src == usageSampled && dst == usageSampled)
			if got := hasImageDependency(src, dst); got != want {
				t.Errorf("hasImageDependency(%s, %s) = %v, want %v", names[src], names[dst], got, want)
			}
		}
	}
}

func TestDereferenceImageMultiHop(t *testing.T) {
	src := &componentObj{
		name:      Intern("derefSrc"),
		images:    map[Name]*graphImage{},
		imageRefs: map[Name]*graphImageRef{},
	}
	outName := Intern("out")
	outImg := &graphImage{kind: NodeTypeOutput, name: outName, debugName: "out"}
	src.images[outName] = outImg

	mid := &componentObj{
		name:      Intern("derefMid"),
		images:    map[Name]*graphImage{},
		imageRefs: map[Name]*graphImageRef{},
	}
	mid.imageRefs[Intern("in")] = &graphImageRef{kind: NodeTypeInput, srcComponent: src, srcOutputName: outName}

	dst := &componentObj{
		name:      Intern("derefDst"),
		images:    map[Name]*graphImage{},
		imageRefs: map[Name]*graphImageRef{},
	}
	dst.imageRefs[Intern("in2")] = &graphImageRef{kind: NodeTypeInput, srcComponent: mid, srcOutputName: Intern("in")}

	comp := dst
	name := Intern("in2")
	img := dereferenceImage(&comp, &name)

	if img != outImg {
		t.Fatalf("dereferenceImage resolved to wrong image: have %v want %v", img, outImg)
	}
	if comp != src {
		t.Fatalf("dereferenceImage did not slide *compObj to the owning component: have %q want %q", comp.debugName, src.debugName)
	}
	if name != outName {
		t.Fatalf("dereferenceImage did not rewrite *name to the owning name: have %d want %d", name, outName)
	}
}

func TestDereferenceImagePanicsOnUnknownName(t *testing.T) {
	comp := &componentObj{
		name:      Intern("derefUnknown"),
		images:    map[Name]*graphImage{},
		imageRefs: map[Name]*graphImageRef{},
	}
	name := Intern("nope")

	defer func() {
		if recover() == nil {
			t.Fatalf("dereferenceImage did not panic on an undeclared name")
		}
	}()
	dereferenceImage(&comp, &name)
}
