package checks

import (
	"context"
	"errors"

	"github.com/avoronkov/pdnaudit/internal/registry"
	sharederrors "github.com/avoronkov/pdnaudit/internal/shared/errors"
)

const IDRegistryRegistration = "registry_registration"

// RegistryChecker verifies the operator appears in the regulator's register
// of personal-data operators. The INN comes from the audit request or, when
// absent, from the site's own published details.
type RegistryChecker struct {
	Lookup *registry.Lookup
}

func (RegistryChecker) ID() string    { return IDRegistryRegistration }
func (RegistryChecker) Title() string { return "Регистрация в реестре операторов ПДн" }

func (c RegistryChecker) Check(ctx context.Context, in *Input) Result {
	res := Result{
		ID:             c.ID(),
		Title:          c.Title(),
		LegalReference: "ст. 22 152-ФЗ",
	}

	innValue := in.INN
	if innValue == "" {
		innValue = ExtractINN(in)
	}
	if innValue == "" {
		res.Status = StatusNA
		res.Evidence = append(res.Evidence, "ИНН оператора не указан и не найден на сайте")
		return res
	}
	if c.Lookup == nil {
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "источник данных реестра не настроен")
		return res
	}

	rec, err := c.Lookup.LookupByINN(ctx, innValue)
	switch {
	case errors.Is(err, sharederrors.ErrInvalidINN):
		res.Status = StatusNA
		res.Evidence = append(res.Evidence, "ИНН "+innValue+" не проходит проверку контрольной суммы")
		return res
	case errors.Is(err, sharederrors.ErrRegistryNotFound), errors.Is(err, sharederrors.ErrRegistryUnavailable):
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "данные реестра по ИНН "+innValue+" недоступны")
		return res
	case err != nil:
		res.Status = StatusUnavailable
		res.Limitations = append(res.Limitations, "ошибка обращения к реестру: "+err.Error())
		return res
	}

	if rec.Registered {
		res.Status = StatusOK
		res.Evidence = append(res.Evidence, "оператор найден в реестре, ИНН "+innValue)
		if rec.RegistrationNumber != "" {
			res.Evidence = append(res.Evidence, "регистрационный номер "+rec.RegistrationNumber)
		}
		if rec.Name != "" {
			res.Evidence = append(res.Evidence, rec.Name)
		}
		return res
	}

	res.Status = StatusFail
	res.Evidence = append(res.Evidence, "оператор с ИНН "+innValue+" в реестре не найден")
	res.Limitations = append(res.Limitations, "реестр пополняется с задержкой после подачи уведомления")
	return res
}
