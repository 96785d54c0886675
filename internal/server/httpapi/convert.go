package httpapi

import (
	"cipherchat/internal/api"
	"cipherchat/internal/server/models"
)

func toAPIProfile(p *models.Profile) *api.Profile {
	return &api.Profile{
		ID:          p.ID,
		UserName:    p.UserName,
		DisplayName: p.DisplayName,
		PublicKey:   p.PublicKey,
		CreatedAt:   p.CreatedAt,
	}
}

func toAPIDirectMessage(m *models.DirectMessage) *api.DirectMessage {
	return &api.DirectMessage{
		ID:               m.ID,
		SenderID:         m.SenderID,
		RecipientID:      m.RecipientID,
		EncryptedContent: m.EncryptedContent,
		IV:               m.IV,
		ContentType:      m.ContentType,
		FileURL:          m.FileURL,
		ReadAt:           m.ReadAt,
		CreatedAt:        m.CreatedAt,
	}
}

func toAPIGroup(g *models.ChatGroup) *api.ChatGroup {
	return &api.ChatGroup{
		ID:                g.ID,
		Name:              g.Name,
		Description:       g.Description,
		AvatarURL:         g.AvatarURL,
		CreatedBy:         g.CreatedBy,
		EncryptedGroupKey: g.EncryptedGroupKey,
		CreatedAt:         g.CreatedAt,
	}
}

func toAPIMember(m *models.GroupMember) *api.GroupMember {
	return &api.GroupMember{
		GroupID:           m.GroupID,
		UserID:            m.UserID,
		Role:              m.Role,
		EncryptedGroupKey: m.EncryptedGroupKey,
		JoinedAt:          m.JoinedAt,
		UserName:          m.UserName,
		DisplayName:       m.DisplayName,
		PublicKey:         m.PublicKey,
	}
}

func toAPIGroupMessage(m *models.GroupMessage) *api.GroupMessage {
	return &api.GroupMessage{
		ID:               m.ID,
		GroupID:          m.GroupID,
		SenderID:         m.SenderID,
		EncryptedContent: m.EncryptedContent,
		IV:               m.IV,
		ContentType:      m.ContentType,
		FileURL:          m.FileURL,
		FileName:         m.FileName,
		CreatedAt:        m.CreatedAt,
	}
}
