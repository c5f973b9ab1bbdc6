// Package docs регистрирует OpenAPI-описание, отдаваемое на /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {"get": {"tags": ["Health"], "summary": "Проверка состояния", "responses": {"200": {"description": "OK"}, "503": {"description": "Хранилище недоступно"}}}},
        "/auth/wechat": {"post": {"tags": ["Auth"], "summary": "Вход через WeChat", "responses": {"200": {"description": "OK"}, "401": {"description": "Неверный код"}, "409": {"description": "Недоступно в этом регионе"}}}},
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "Регистрация", "responses": {"201": {"description": "Created"}, "409": {"description": "Email уже занят"}, "422": {"description": "Ошибка валидации"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Авторизация пользователя", "responses": {"200": {"description": "OK"}, "401": {"description": "Неверный email или пароль"}}}},
        "/auth/me": {"get": {"tags": ["Auth"], "summary": "Текущий пользователь", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "401": {"description": "Требуется авторизация"}}}},
        "/profile": {"put": {"tags": ["Profile"], "summary": "Обновить профиль", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/onboarding": {"post": {"tags": ["Profile"], "summary": "Завершить онбординг", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "422": {"description": "Ошибка валидации"}}}},
        "/recommend": {"get": {"tags": ["Recommendations"], "summary": "Сгенерировать рекомендации", "parameters": [{"name": "category", "in": "query", "required": true, "type": "string"}, {"name": "count", "in": "query", "type": "integer"}, {"name": "locale", "in": "query", "type": "string"}, {"name": "client", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}, "422": {"description": "Неизвестная категория"}, "429": {"description": "Превышен лимит запросов"}}}},
        "/recommend/history": {"get": {"tags": ["Recommendations"], "summary": "История рекомендаций", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/recommend/{id}": {"delete": {"tags": ["Recommendations"], "summary": "Удалить рекомендацию", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Не найдено"}}}},
        "/recommend/{id}/click": {"post": {"tags": ["Recommendations"], "summary": "Записать клик", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Не найдено"}}}},
        "/recommend/{id}/save": {"put": {"tags": ["Recommendations"], "summary": "Сохранить рекомендацию", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Не найдено"}}}},
        "/feedback": {"post": {"tags": ["Feedback"], "summary": "Оставить отзыв", "responses": {"201": {"description": "Created"}, "422": {"description": "Ошибка валидации"}}}},
        "/subscription": {"get": {"tags": ["Subscription"], "summary": "Статус подписки", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/payments": {
            "get": {"tags": ["Payments"], "summary": "Список платежей", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Payments"], "summary": "Создать оплату", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Провайдер недоступен в этом регионе"}, "422": {"description": "Ошибка валидации"}}}
        },
        "/payments/{id}": {"get": {"tags": ["Payments"], "summary": "Получить платеж", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Не найдено"}}}},
        "/payments/{id}/sync": {"post": {"tags": ["Payments"], "summary": "Синхронизировать платеж", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Платеж еще не завершен"}}}},
        "/payments/webhook/{provider}": {"post": {"tags": ["Payments"], "summary": "Вебхук платежного провайдера", "parameters": [{"name": "provider", "in": "path", "required": true, "type": "string", "enum": ["stripe", "paypal", "wechat", "alipay"]}], "responses": {"200": {"description": "OK"}, "400": {"description": "Неверная подпись"}, "404": {"description": "Неизвестный провайдер"}}}},
        "/admin/users": {"get": {"tags": ["Admin"], "summary": "Пользователи обоих регионов", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Нет прав администратора"}}}},
        "/admin/payments": {"get": {"tags": ["Admin"], "summary": "Платежи обоих регионов", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Нет прав администратора"}}}},
        "/admin/recommendations": {"get": {"tags": ["Admin"], "summary": "Рекомендации обоих регионов", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Нет прав администратора"}}}},
        "/admin/stats": {"get": {"tags": ["Admin"], "summary": "Счетчики админки по регионам", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Нет прав администратора"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"description": "Введите \"Bearer\", пробел и access-токен.", "type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "RandomLife API",
	Description:      "Personalized random recommendations with a pro subscription, deployed separately for CN and INTL.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
