package common

// Version версия приложения, подставляется в health check и лог старта
const Version = "0.1.0"
