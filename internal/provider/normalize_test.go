package provider

import (
	"testing"

	"github.com/lox/cityweather/internal/models"
)

func rawPayload(desc string, temp float64, humidity int, wind float64) Payload {
	return Payload{
		Weather: []PayloadWeather{{Description: desc}},
		Main:    &PayloadMain{Temp: &temp, Humidity: &humidity},
		Wind:    &PayloadWind{Speed: &wind},
	}
}

func TestNormalize_TitleCasesDescription(t *testing.T) {
	cond, ok := Normalize(rawPayload("clear sky", 21.5, 60, 8.2))
	if !ok {
		t.Fatal("Normalize: not ok")
	}
	want := models.Conditions{TempC: 21.5, Description: "Clear Sky", Humidity: 60, WindKph: 8.2}
	if cond != want {
		t.Errorf("cond = %+v, want %+v", cond, want)
	}
}

func TestNormalize_AllOrNothing(t *testing.T) {
	full := rawPayload("light rain", 12.0, 80, 20.0)

	missingWeather := full
	missingWeather.Weather = nil

	missingTemp := full
	missingTemp.Main = &PayloadMain{Humidity: full.Main.Humidity}

	missingHumidity := full
	missingHumidity.Main = &PayloadMain{Temp: full.Main.Temp}

	missingWind := full
	missingWind.Wind = &PayloadWind{}

	noMain := full
	noMain.Main = nil

	cases := map[string]Payload{
		"missing weather":  missingWeather,
		"missing temp":     missingTemp,
		"missing humidity": missingHumidity,
		"missing wind":     missingWind,
		"nil main":         noMain,
		"empty payload":    {},
	}
	for name, p := range cases {
		cond, ok := Normalize(p)
		if ok {
			t.Errorf("%s: Normalize ok, want empty", name)
		}
		if cond != (models.Conditions{}) {
			t.Errorf("%s: cond = %+v, want zero value (no partial record)", name, cond)
		}
	}
}

func TestSyntheticPayload_Normalizes(t *testing.T) {
	cond, ok := Normalize(syntheticPayload(51.5, -0.12))
	if !ok {
		t.Fatal("synthetic payload did not normalize")
	}
	if cond.Description == "" {
		t.Error("expected non-empty description")
	}
	if cond.Humidity < 30 || cond.Humidity > 90 {
		t.Errorf("Humidity = %d, want 30..90", cond.Humidity)
	}
	if cond.TempC < -10 || cond.TempC > 35 {
		t.Errorf("TempC = %f, want -10..35", cond.TempC)
	}
}

func TestSyntheticPayload_StableWithinHour(t *testing.T) {
	a := syntheticPayload(48.85, 2.35)
	b := syntheticPayload(48.85, 2.35)
	if *a.Main.Temp != *b.Main.Temp || a.Weather[0].Description != b.Weather[0].Description {
		t.Error("expected identical synthetic conditions for the same location")
	}
}
