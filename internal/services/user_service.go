package services

import (
	"inkwell_go_backend/internal/database"
	"inkwell_go_backend/internal/models"
)

func CreateOrUpdateUser(auth0ID, email, name, nickname, plan string) (*models.User, error) {
	user := models.User{
		Auth0ID:  auth0ID,
		Email:    email,
		Name:     name,
		Nickname: nickname,
		Plan:     plan,
	}
	result := database.DB.Where(models.User{Auth0ID: auth0ID}).Assign(models.User{Plan: plan}).FirstOrCreate(&user)

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func GetUserByAuth0ID(auth0ID string) (*models.User, error) {
	var user models.User
	result := database.DB.Where("auth0_id = ?", auth0ID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
