// Package form 实现各表单的校验与清洗流水线
//
// 每个表单由一份 Definition 描述：必填字段、可选字段、邮箱字段、
// 同意复选框、服务复选框组以及是否需要上传文件。校验按固定顺序进行并
// 累积全部错误：必填字段 → 邮箱格式 → 同意复选框 → 上传文件。
package form

import "infrasalama/backend/internal/domain"

// 客户端可见的校验消息
const (
	MsgInvalidEmail   = "L'adresse email n'est pas valide"
	MsgPrivacyConsent = "Vous devez accepter la politique de confidentialité"
	MsgDemoConsent    = "Vous devez accepter d'être contacté pour la démonstration"
	MsgMissingFile    = "Le CV est obligatoire"
	MsgUploadError    = "Erreur lors de l'upload du CV"
)

// CheckboxOn 复选框勾选时提交的唯一合法值
const CheckboxOn = "on"

// Consent 必须勾选的同意复选框
type Consent struct {
	Field   string
	Message string
}

// Service 报价表单中的服务复选框及其展示标签
type Service struct {
	Field string
	Label string
}

// Definition 描述一个表单的字段规则
type Definition struct {
	Kind       domain.FormKind
	Required   []string
	Optional   []string
	EmailField string
	Consents   []Consent
	Services   []Service
	FileField  string // 非空表示必须上传文件
}

// Contact 联系表单
var Contact = Definition{
	Kind:       domain.FormContact,
	Required:   []string{"name", "email", "subject", "message"},
	Optional:   []string{"phone"},
	EmailField: "email",
	Consents: []Consent{
		{Field: "privacy", Message: MsgPrivacyConsent},
	},
}

// Devis 报价申请表单
var Devis = Definition{
	Kind: domain.FormDevis,
	Required: []string{
		"firstName",
		"lastName",
		"email",
		"phone",
		"establishmentName",
		"establishmentType",
		"address",
		"city",
		"postalCode",
		"establishmentSize",
		"existingInfrastructure",
		"timeline",
		"projectDescription",
	},
	Optional:   []string{"budget", "hearAboutUs", "additionalInfo"},
	EmailField: "email",
	Consents: []Consent{
		{Field: "privacy", Message: MsgPrivacyConsent},
	},
	Services: []Service{
		{Field: "networkInstallation", Label: "Installation complète de réseaux"},
		{Field: "infrastructureAudit", Label: "Audit d'infrastructure existante"},
		{Field: "networkSecurity", Label: "Sécurisation de réseau"},
		{Field: "wifiSolutions", Label: "Solutions Wi-Fi"},
		{Field: "serverManagement", Label: "Gestion de serveurs"},
		{Field: "technicalSupport", Label: "Support technique"},
	},
}

// Demo EduPilot 演示申请表单
var Demo = Definition{
	Kind: domain.FormDemo,
	Required: []string{
		"nomEtablissement",
		"typeEtablissement",
		"ville",
		"wilaya",
		"nombreEleves",
		"nomContact",
		"fonction",
		"email",
		"telephone",
	},
	Optional:   []string{"message"},
	EmailField: "email",
	Consents: []Consent{
		{Field: "acceptDemo", Message: MsgDemoConsent},
		{Field: "rgpd", Message: MsgPrivacyConsent},
	},
}

// Recrutement 招聘申请表单
var Recrutement = Definition{
	Kind:       domain.FormRecrutement,
	Required:   []string{"firstName", "lastName", "email", "phone", "position", "experience"},
	Optional:   []string{"coverLetter"},
	EmailField: "email",
	Consents: []Consent{
		{Field: "privacyConsent", Message: MsgPrivacyConsent},
	},
	FileField: "resume",
}

// Lookup 按表单类型查找定义
func Lookup(kind domain.FormKind) (Definition, bool) {
	switch kind {
	case domain.FormContact:
		return Contact, true
	case domain.FormDevis:
		return Devis, true
	case domain.FormDemo:
		return Demo, true
	case domain.FormRecrutement:
		return Recrutement, true
	default:
		return Definition{}, false
	}
}
