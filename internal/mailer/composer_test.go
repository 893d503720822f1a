package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infrasalama/backend/internal/domain"
	"infrasalama/backend/internal/form"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer("Infra Salama")
	require.NoError(t, err)
	return c
}

func recordFrom(t *testing.T, def form.Definition, fields map[string]string) *domain.Record {
	t.Helper()
	sub := domain.NewSubmission(fields)
	if def.FileField != "" {
		sub.File = &domain.Upload{Status: domain.UploadOK}
	}
	result := def.Validate(sub)
	require.True(t, result.IsValid(), "errors: %v", domain.Messages(result.Errors()))
	return result.Record()
}

func TestComposeContact(t *testing.T) {
	c := newTestComposer(t)
	record := recordFrom(t, form.Contact, map[string]string{
		"name":    `Amine "Le Chef" <b>`,
		"email":   "amine@example.com",
		"subject": "Réseau & Wi-Fi",
		"message": "Ligne 1\nLigne 2",
		"privacy": "on",
	})

	msg, err := c.Compose(record)
	require.NoError(t, err)

	assert.Equal(t, "Nouveau message depuis le formulaire de contact", msg.Subject)

	// 已转义的值不会被二次转义
	assert.Contains(t, msg.HTML, "Amine &quot;Le Chef&quot; &lt;b&gt;")
	assert.NotContains(t, msg.HTML, "&amp;quot;")
	assert.Contains(t, msg.HTML, "Réseau &amp; Wi-Fi")
	assert.NotContains(t, msg.HTML, "&amp;amp;")
	assert.Contains(t, msg.HTML, "Ligne 1<br />\nLigne 2")

	// 缺失的可选字段显示 N/A
	assert.Contains(t, msg.HTML, "<div class='value'>N/A</div>")
	assert.Contains(t, msg.Text, "Téléphone: N/A")

	// 纯文本还原字符实体
	assert.Contains(t, msg.Text, `Nom: Amine "Le Chef" <b>`)
	assert.Contains(t, msg.Text, "Sujet: Réseau & Wi-Fi")
	assert.True(t, strings.HasPrefix(msg.Text, "NOUVEAU MESSAGE DE CONTACT\n\n"))
}

func TestComposeDevis(t *testing.T) {
	c := newTestComposer(t)
	fields := map[string]string{
		"firstName":              "Sara",
		"lastName":               "Khelifi",
		"email":                  "sara@ecole.dz",
		"phone":                  "0550000000",
		"establishmentName":      "École L'Avenir",
		"establishmentType":      "primaire",
		"address":                "12 rue Didouche",
		"city":                   "Alger",
		"postalCode":             "16000",
		"establishmentSize":      "200-500",
		"existingInfrastructure": "aucune",
		"timeline":               "3 mois",
		"projectDescription":     "Refonte",
		"privacy":                "on",
	}

	t.Run("无服务无预算", func(t *testing.T) {
		msg, err := c.Compose(recordFrom(t, form.Devis, fields))
		require.NoError(t, err)

		assert.Equal(t, "Nouvelle demande de devis - École L'Avenir", msg.Subject)
		assert.Contains(t, msg.Text, "Services: Aucun")
		assert.Contains(t, msg.Text, "Budget: Non défini")
		assert.Contains(t, msg.Text, "Ville: Alger - 16000")
		assert.Contains(t, msg.HTML, "École L&#039;Avenir")
		assert.Contains(t, msg.HTML, "<h3>Établissement</h3>")
	})

	t.Run("勾选服务", func(t *testing.T) {
		withServices := make(map[string]string, len(fields)+3)
		for k, v := range fields {
			withServices[k] = v
		}
		withServices["networkSecurity"] = "on"
		withServices["wifiSolutions"] = "on"
		withServices["budget"] = "500000 DA"

		msg, err := c.Compose(recordFrom(t, form.Devis, withServices))
		require.NoError(t, err)

		assert.Contains(t, msg.Text, "Services: Sécurisation de réseau, Solutions Wi-Fi")
		assert.Contains(t, msg.Text, "Budget: 500000 DA")
	})
}

func TestComposeDemo(t *testing.T) {
	c := newTestComposer(t)
	fields := map[string]string{
		"nomEtablissement":  "Lycée Ibn Khaldoun",
		"typeEtablissement": "lycée",
		"ville":             "Oran",
		"wilaya":            "31",
		"nombreEleves":      "800",
		"nomContact":        "M. Haddad",
		"fonction":          "Directeur",
		"email":             "direction@lycee.dz",
		"telephone":         "041000000",
		"acceptDemo":        "on",
		"rgpd":              "on",
	}

	msg, err := c.Compose(recordFrom(t, form.Demo, fields))
	require.NoError(t, err)

	assert.Equal(t, "Demande de démo EduPilot - Lycée Ibn Khaldoun", msg.Subject)
	assert.Contains(t, msg.HTML, "Oran - Wilaya 31")
	assert.NotContains(t, msg.HTML, "<h3>Message</h3>")
	assert.NotContains(t, msg.Text, "=== MESSAGE ===")

	fields["message"] = "Disponible le mardi"
	msg, err = c.Compose(recordFrom(t, form.Demo, fields))
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "<h3>Message</h3>")
	assert.Contains(t, msg.Text, "=== MESSAGE ===\nDisponible le mardi")
}

func TestComposeRecrutement(t *testing.T) {
	c := newTestComposer(t)
	record := recordFrom(t, form.Recrutement, map[string]string{
		"firstName":      "Nadia",
		"lastName":       "Mansouri",
		"email":          "nadia@example.com",
		"phone":          "0661000000",
		"position":       "Technicienne réseau",
		"experience":     "3-5",
		"privacyConsent": "on",
	})
	record.File = &domain.StoredFile{
		Path:         "/srv/uploads/cv/cv_1700000000_abcdef0123456789.pdf",
		OriginalName: "CV Nadia.pdf",
	}

	msg, err := c.Compose(record)
	require.NoError(t, err)

	assert.Equal(t, "Nouvelle candidature - Technicienne réseau - Nadia Mansouri", msg.Subject)
	assert.Contains(t, msg.HTML, "CV Nadia.pdf")
	assert.Contains(t, msg.Text, "Fichier: CV Nadia.pdf (joint à cet email)")
	assert.NotContains(t, msg.HTML, "/srv/uploads")
	assert.NotContains(t, msg.Text, "cv_1700000000")
	assert.NotContains(t, msg.Text, "LETTRE DE MOTIVATION")
}

func TestComposeRejectsUnknownForm(t *testing.T) {
	c := newTestComposer(t)

	_, err := c.Compose(domain.NewRecord(domain.FormHealthMail))
	assert.Error(t, err)

	_, err = c.Compose(nil)
	assert.Error(t, err)
}

func TestSubjectStripsLineBreaks(t *testing.T) {
	record := domain.NewRecord(domain.FormDevis)
	record.Values["establishmentName"] = "École\r\nBcc: victim@example.com"

	subject := Subject(record)

	assert.NotContains(t, subject, "\n")
	assert.NotContains(t, subject, "\r")
}

func TestHealthCheck(t *testing.T) {
	c := newTestComposer(t)

	msg, err := c.HealthCheck(time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC), "smtp", "smtp.example.com")
	require.NoError(t, err)

	assert.Equal(t, "Test de configuration email - Infra Salama", msg.Subject)
	assert.Contains(t, msg.Text, "Date: 06/05/2024 10:30:00 UTC")
	assert.Contains(t, msg.Text, "Serveur: smtp.example.com")
	assert.Contains(t, msg.HTML, "smtp.example.com")
}
