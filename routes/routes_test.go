package routes

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Class
	}{
		{"/", Class{Kind: Exempt}},
		{"", Class{Kind: Exempt}},
		{"/onboarding", Class{Kind: Exempt}},
		{"/onboarding/step-2", Class{Kind: Exempt}},
		{"/payment/success", Class{Kind: Exempt}},
		{"/dashboard/acme", Class{Kind: DashboardScoped, Slug: "acme"}},
		{"/dashboard/acme/stock", Class{Kind: DashboardScoped, Slug: "acme"}},
		{"/dashboard/", Class{Kind: DashboardScoped, Slug: ""}},
		{"/dashboard", Class{Kind: DashboardScoped, Slug: ""}},
		{"/boutique/acme", Class{Kind: StoreScoped, Slug: "acme"}},
		{"/checkout/acme/confirm", Class{Kind: StoreScoped, Slug: "acme"}},
		{"/orders/acme", Class{Kind: StoreScoped, Slug: "acme"}},
		{"/about", Class{Kind: Other}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := Classify(tt.path)
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassify_DecodesSlug(t *testing.T) {
	got := Classify("/dashboard/caf%C3%A9-du-coin")
	if got.Kind != DashboardScoped || got.Slug != "café-du-coin" {
		t.Errorf("expected decoded slug, got %+v", got)
	}
}

func TestClassify_UndecodableSlugKeptRaw(t *testing.T) {
	got := Classify("/boutique/bad%zz")
	if got.Kind != StoreScoped || got.Slug != "bad%zz" {
		t.Errorf("expected raw slug on decode failure, got %+v", got)
	}
}

func TestKind_String(t *testing.T) {
	if Exempt.String() != "exempt" || DashboardScoped.String() != "dashboard" {
		t.Error("unexpected kind names")
	}
}
