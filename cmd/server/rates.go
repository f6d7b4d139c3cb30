package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Simplici0/woodshop/internal/store"
)

func (s *server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.store.GetRateConfig(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *server) handleUpdateRates(w http.ResponseWriter, r *http.Request) {
	var (
		rc  store.RateConfig
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err = decodeJSON(w, r, &rc); err == nil {
			err = validateRateConfig(rc)
		}
	} else {
		rc, err = parseRateConfigForm(r)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateRateConfig(r.Context(), rc); err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.handleGetRates(w, r)
}

func parseRateConfigForm(r *http.Request) (store.RateConfig, error) {
	if err := r.ParseForm(); err != nil {
		return store.RateConfig{}, err
	}

	var (
		rc  store.RateConfig
		err error
	)
	if rc.LaborHourlyRate, err = parseNonNegativeFloat(r.FormValue("labor_hourly_rate"), "Tarifa de mano de obra"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.OverheadFixed, err = parseNonNegativeFloat(r.FormValue("overhead_fixed"), "Gastos generales fijos"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.OverheadPercent, err = parsePercent(r.FormValue("overhead_percent"), "Gastos generales %"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.ReworkPercent, err = parsePercent(r.FormValue("rework_percent"), "Reprocesos %"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.WastePercent, err = parsePercent(r.FormValue("waste_percent"), "Desperdicio %"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.MarginPercent, err = parseNonNegativeFloat(r.FormValue("margin_percent"), "Margen %"); err != nil {
		return store.RateConfig{}, err
	}
	if rc.TaxPercent, err = parsePercent(r.FormValue("tax_percent"), "Impuesto %"); err != nil {
		return store.RateConfig{}, err
	}
	rc.Currency = strings.ToUpper(strings.TrimSpace(r.FormValue("currency")))
	return rc, validateRateConfig(rc)
}

func validateRateConfig(rc store.RateConfig) error {
	checks := []struct {
		value   float64
		field   string
		percent bool
	}{
		{rc.LaborHourlyRate, "Tarifa de mano de obra", false},
		{rc.OverheadFixed, "Gastos generales fijos", false},
		{rc.OverheadPercent, "Gastos generales %", true},
		{rc.ReworkPercent, "Reprocesos %", true},
		{rc.WastePercent, "Desperdicio %", true},
		{rc.MarginPercent, "Margen %", false},
		{rc.TaxPercent, "Impuesto %", true},
	}
	for _, c := range checks {
		if !finite(c.value) {
			return fmt.Errorf("%s debe ser numérico", c.field)
		}
		if c.value < 0 {
			return fmt.Errorf("%s debe ser mayor o igual a 0", c.field)
		}
		if c.percent && c.value > 100 {
			return fmt.Errorf("%s debe estar entre 0 y 100", c.field)
		}
	}
	return nil
}
