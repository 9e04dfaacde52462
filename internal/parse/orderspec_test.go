package parse_test

import (
	"errors"
	"testing"

	"docflow/internal/parse"
	"docflow/internal/services"
)

const fullOrderSpec = `Klient: Test Company; Projekt: PRJ-001; System: Profil 70
Termin realizacji: 2026-02-15
Dostawa PVC: 2026-02-10
Autor dokumentu: Krzysztof Nowak
Zlec;Num Art;Nowych bel;Reszta
54222-a;19016000;2;1500
54222-a;18866000p;1;500
54222-a;ABC;1;0
Lista okien
Lp.;Szerokosc;Wysokosc;Typ profilu;Ilosc;Referencja
1;1200;1400;P70;1;OKNO01
2;0;0;P70;1;PUSTE
3;900;1400;P70;2;OKNO02
Lista szyb
Lp.;Pozycja;Szerokosc;Wysokosc;Ilosc;Typ pakietu
1;1;773;2222;1;4/18/4/18/4S3 Ug=0.5
2;3;500;500;2;4/16/4
Łączna liczba okien;2
Łączna liczba skrzydeł;3
Łączna liczba szyb;3
`

func TestParseOrderSpecFullDocument(t *testing.T) {
	spec, err := parse.ParseOrderSpec(fullOrderSpec)
	if err != nil {
		t.Fatalf("ParseOrderSpec failed: %v", err)
	}
	if spec.OrderNumber.Full != "54222-a" || spec.OrderNumber.Base != "54222" || spec.OrderNumber.Suffix != "a" {
		t.Fatalf("unexpected order number: %#v", spec.OrderNumber)
	}
	if spec.Client != "Test Company" || spec.Project != "PRJ-001" || spec.System != "Profil 70" {
		t.Fatalf("unexpected header: client=%q project=%q system=%q", spec.Client, spec.Project, spec.System)
	}
	if spec.Deadline != "2026-02-15" || spec.PVCDeliveryDate != "2026-02-10" {
		t.Fatalf("unexpected dates: %q %q", spec.Deadline, spec.PVCDeliveryDate)
	}
	if spec.DocumentAuthor != "Krzysztof Nowak" {
		t.Fatalf("unexpected author %q", spec.DocumentAuthor)
	}
	if len(spec.Requirements) != 2 {
		t.Fatalf("expected invalid article to be skipped, got %d requirements", len(spec.Requirements))
	}
	req := spec.Requirements[0]
	if req.ProfileNumber != "9016" || req.ColorCode != "000" || req.Beams != 2 || req.RestMM != 1500 {
		t.Fatalf("unexpected requirement: %#v", req)
	}
	if len(spec.Windows) != 2 {
		t.Fatalf("expected zero-size window to be dropped, got %d", len(spec.Windows))
	}
	if len(spec.Glasses) != 2 || spec.Glasses[1].Quantity != 2 {
		t.Fatalf("unexpected glasses: %#v", spec.Glasses)
	}
	if spec.Totals != (parse.Totals{Windows: 2, Sashes: 3, Glasses: 3}) {
		t.Fatalf("unexpected totals: %#v", spec.Totals)
	}
	if spec.WindowCount() != 2 || spec.GlassCount() != 3 {
		t.Fatalf("unexpected counts: %d %d", spec.WindowCount(), spec.GlassCount())
	}
}

func TestParseOrderSpecFillsProjectFromWindows(t *testing.T) {
	spec, err := parse.ParseOrderSpec(`Zlec;Num Art;Nowych bel;Reszta
54222;19016000;1;0
Lista drzwi
Lp.;Szerokosc;Wysokosc;Typ profilu;Ilosc;Referencja
1;900;2100;D;1;DOOR01
2;900;2100;D;1;DOOR02
`)
	if err != nil {
		t.Fatalf("ParseOrderSpec failed: %v", err)
	}
	if spec.Project != "DOOR01, DOOR02" || spec.System != "D" {
		t.Fatalf("unexpected derived project/system: %q %q", spec.Project, spec.System)
	}
	if spec.WindowCount() != 2 {
		t.Fatalf("expected row count fallback, got %d", spec.WindowCount())
	}
}

func TestParseOrderSpecGlassTotalFallback(t *testing.T) {
	spec, err := parse.ParseOrderSpec("Zlec;Num Art;Nowych bel;Reszta\r\n54222;19016000;1;0\r\nLaczna lic:;14\r\n")
	if err != nil {
		t.Fatalf("ParseOrderSpec failed: %v", err)
	}
	if spec.Totals.Glasses != 14 {
		t.Fatalf("expected glass total 14, got %d", spec.Totals.Glasses)
	}
}

func TestParseOrderSpecWithoutOrderNumber(t *testing.T) {
	for name, text := range map[string]string{
		"empty":       "",
		"header only": "Zlec;Num Art;Nowych bel;Reszta\n",
		"short rows":  "Zlec;Num Art\n54222;19016000\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parse.ParseOrderSpec(text); !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
