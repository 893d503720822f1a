package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrasalama/backend/internal/domain"
)

func validContact() map[string]string {
	return map[string]string{
		"name":    "Amine Benali",
		"email":   "amine@example.com",
		"subject": "Câblage",
		"message": "Bonjour,\nnous souhaitons un devis.",
		"privacy": "on",
	}
}

func validDevis() map[string]string {
	return map[string]string{
		"firstName":              "Sara",
		"lastName":               "Khelifi",
		"email":                  "sara@ecole.dz",
		"phone":                  "0550 00 00 00",
		"establishmentName":      "École Les Oliviers",
		"establishmentType":      "primaire",
		"address":                "12 rue Didouche",
		"city":                   "Alger",
		"postalCode":             "16000",
		"establishmentSize":      "200-500",
		"existingInfrastructure": "partielle",
		"timeline":               "3 mois",
		"projectDescription":     "Refonte du réseau",
		"privacy":                "on",
	}
}

func codes(errs []domain.FieldError) []domain.ErrorCode {
	out := make([]domain.ErrorCode, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestCheckRequiredFields(t *testing.T) {
	t.Run("缺失与空白字段均报错", func(t *testing.T) {
		fields := validContact()
		delete(fields, "name")
		fields["subject"] = "   "

		errs := Contact.Check(domain.NewSubmission(fields))

		require.Len(t, errs, 2)
		assert.Equal(t, "Le champ 'name' est requis", errs[0].Message)
		assert.Equal(t, "Le champ 'subject' est requis", errs[1].Message)
		assert.Equal(t, domain.CodeMissingField, errs[0].Code)
	})

	t.Run("每个必填字段单独缺失都会失败", func(t *testing.T) {
		for _, field := range Devis.Required {
			fields := validDevis()
			delete(fields, field)

			result := Devis.Validate(domain.NewSubmission(fields))

			assert.False(t, result.IsValid(), field)
			assert.Contains(t, domain.Messages(result.Errors()), MissingFieldMessage(field))
		}
	})

	t.Run("可选字段缺失不报错", func(t *testing.T) {
		result := Contact.Validate(domain.NewSubmission(validContact()))

		require.True(t, result.IsValid())
		_, ok := result.Record().Get("phone")
		assert.False(t, ok)
	})
}

func TestCheckEmail(t *testing.T) {
	t.Run("非法邮箱与其它错误一起列出", func(t *testing.T) {
		fields := validContact()
		fields["email"] = "not-an-email"
		delete(fields, "message")
		delete(fields, "privacy")

		errs := Contact.Check(domain.NewSubmission(fields))

		assert.Equal(t, []domain.ErrorCode{
			domain.CodeMissingField,
			domain.CodeInvalidEmail,
			domain.CodeConsentRequired,
		}, codes(errs))
		assert.Equal(t, MsgInvalidEmail, errs[1].Message)
	})

	t.Run("空白邮箱只报缺失", func(t *testing.T) {
		fields := validContact()
		fields["email"] = "  "

		errs := Contact.Check(domain.NewSubmission(fields))

		assert.Equal(t, []domain.ErrorCode{domain.CodeMissingField}, codes(errs))
	})
}

func TestCheckConsent(t *testing.T) {
	values := []struct {
		value string
		ok    bool
	}{
		{"on", true},
		{"ON", false},
		{"true", false},
		{"1", false},
		{"yes", false},
		{"", false},
		{" on", false},
	}

	for _, v := range values {
		t.Run(v.value, func(t *testing.T) {
			fields := validContact()
			fields["privacy"] = v.value

			result := Contact.Validate(domain.NewSubmission(fields))

			assert.Equal(t, v.ok, result.IsValid())
		})
	}

	t.Run("演示表单两个同意项分别检查", func(t *testing.T) {
		fields := map[string]string{
			"nomEtablissement":  "Lycée Ibn Khaldoun",
			"typeEtablissement": "lycée",
			"ville":             "Oran",
			"wilaya":            "31",
			"nombreEleves":      "800",
			"nomContact":        "M. Haddad",
			"fonction":          "Directeur",
			"email":             "direction@lycee.dz",
			"telephone":         "041 00 00 00",
			"rgpd":              "on",
		}

		errs := Demo.Check(domain.NewSubmission(fields))

		require.Len(t, errs, 1)
		assert.Equal(t, MsgDemoConsent, errs[0].Message)
		assert.Equal(t, "acceptDemo", errs[0].Field)
	})
}

func TestCheckFile(t *testing.T) {
	fields := map[string]string{
		"firstName":      "Nadia",
		"lastName":       "Mansouri",
		"email":          "nadia@example.com",
		"phone":          "0661000000",
		"position":       "Technicienne réseau",
		"experience":     "3-5",
		"privacyConsent": "on",
	}

	tests := []struct {
		name string
		file *domain.Upload
		want []domain.ErrorCode
	}{
		{"文件缺失", nil, []domain.ErrorCode{domain.CodeMissingFile}},
		{"状态为缺失", &domain.Upload{Status: domain.UploadMissing}, []domain.ErrorCode{domain.CodeMissingFile}},
		{"上传失败", &domain.Upload{Status: domain.UploadFailed}, []domain.ErrorCode{domain.CodeUploadError}},
		{"上传成功", &domain.Upload{Status: domain.UploadOK, Filename: "cv.pdf"}, []domain.ErrorCode{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := domain.NewSubmission(fields)
			sub.File = tt.file

			assert.Equal(t, tt.want, codes(Recrutement.Check(sub)))
		})
	}
}

func TestSanitize(t *testing.T) {
	t.Run("转义文本并过滤邮箱", func(t *testing.T) {
		fields := validContact()
		fields["name"] = "  <b>Amine</b> & Co  "
		fields["email"] = " amine@example.com "
		fields["phone"] = " 0550 "

		record := Contact.Validate(domain.NewSubmission(fields)).Record()

		require.NotNil(t, record)
		assert.Equal(t, domain.FormContact, record.Kind)
		assert.Equal(t, "&lt;b&gt;Amine&lt;/b&gt; &amp; Co", record.Values["name"])
		assert.Equal(t, "amine@example.com", record.Values["email"])
		assert.Equal(t, "0550", record.Values["phone"])
	})

	t.Run("服务复选框折叠为标签", func(t *testing.T) {
		fields := validDevis()
		fields["wifiSolutions"] = "on"
		fields["networkInstallation"] = "on"
		fields["technicalSupport"] = "off"

		record := Devis.Validate(domain.NewSubmission(fields)).Record()

		require.NotNil(t, record)
		assert.Equal(t, []string{"Installation complète de réseaux", "Solutions Wi-Fi"}, record.Services)
		_, hasBudget := record.Get("budget")
		assert.False(t, hasBudget)
	})

	t.Run("清洗幂等", func(t *testing.T) {
		fields := validContact()
		fields["message"] = `<p>"l'école" & R&amp;D</p>`

		first := Contact.Sanitize(domain.NewSubmission(fields))
		second := Contact.Sanitize(domain.NewSubmission(first.Values))

		assert.Equal(t, first.Values, second.Values)
	})
}

func TestLookup(t *testing.T) {
	for _, kind := range []domain.FormKind{domain.FormContact, domain.FormDevis, domain.FormDemo, domain.FormRecrutement} {
		def, ok := Lookup(kind)
		assert.True(t, ok)
		assert.Equal(t, kind, def.Kind)
	}

	_, ok := Lookup(domain.FormHealthMail)
	assert.False(t, ok)
}
