package httptransport

import (
	"errors"

	"infrasalama/backend/internal/domain"
	"infrasalama/backend/internal/storage/filesystem"
)

// 成功消息（按表单）
var successMessages = map[domain.FormKind]string{
	domain.FormContact:     "Votre message a été envoyé avec succès. Nous vous répondrons dans les plus brefs délais.",
	domain.FormDevis:       "Votre demande de devis a été envoyée avec succès. Nous vous contacterons sous 3 à 5 jours ouvrables.",
	domain.FormDemo:        "Votre demande de démonstration a été envoyée avec succès. Nous vous contacterons sous 48 heures.",
	domain.FormRecrutement: "Votre candidature a été envoyée avec succès. Nous examinerons votre profil et vous contacterons si votre candidature correspond à nos besoins.",
}

// 通用错误消息
const (
	MsgMethodNotAllowed = "Méthode non autorisée"
	MsgNotFound         = "Ressource introuvable"
	MsgSendFailed       = "Une erreur est survenue lors de l'envoi. Veuillez réessayer."
	MsgServerError      = "Erreur serveur. Veuillez contacter l'administrateur."
	MsgBodyTooLarge     = "La requête est trop volumineuse"

	// 简历目录
	MsgUploadDirCreate   = "Impossible de créer le dossier CV. Vérifiez les permissions."
	MsgUploadDirWritable = "Le dossier CV n'est pas accessible en écriture."
	MsgUploadSave        = "Erreur lors de la sauvegarde du CV."

	// 邮件自检
	MsgUnauthorized     = "Accès non autorisé"
	MsgHealthSent       = "Email test envoyé"
	MsgHealthFailed     = "Échec de l'envoi test"
	MsgHealthServerFail = "Erreur serveur"
)

// storageMessage 把存储错误映射为客户端消息
func storageMessage(err error) string {
	switch {
	case errors.Is(err, filesystem.ErrCreateDir):
		return MsgUploadDirCreate
	case errors.Is(err, filesystem.ErrNotWritable):
		return MsgUploadDirWritable
	default:
		return MsgUploadSave
	}
}
