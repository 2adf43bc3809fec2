package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
	if got := GetCatalog(""); got != base {
		t.Fatal("expected empty locale to resolve to en-US catalog")
	}
}

func TestGetCatalogMatchesRegionalVariant(t *testing.T) {
	got := GetCatalog("pt-PT")
	if got.Locale() != "pt-BR" {
		t.Fatalf("locale = %q, want pt-BR", got.Locale())
	}
}

func TestBaseCatalogCoversEveryCode(t *testing.T) {
	for code := range ptBRMessages {
		if _, ok := enUSMessages[code]; !ok {
			t.Errorf("en-US catalog missing %s", code)
		}
	}
	for code := range enUSMessages {
		if _, ok := ptBRMessages[code]; !ok {
			t.Errorf("pt-BR catalog missing %s", code)
		}
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatRendersMetadata(t *testing.T) {
	got := GetCatalog("en-US").Format(CodeInvalidArgument, map[string]string{"Field": "domain hash"})
	if got != "Invalid domain hash." {
		t.Fatalf("format = %q", got)
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
