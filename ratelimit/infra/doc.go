// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowGate: janela fixa com mutex + broadcast no reset (padrão)
//   - TokenGate: token bucket usando golang.org/x/time/rate
//   - HTTPTransport: POST do documento para o serviço de registro
//   - ChanPool: semáforo simples para limitar chamadas em voo
//   - MemoryStatsStore / RedisStatsStore: estatísticas de admissão
//   - Metrics: métricas Prometheus do gate e do transporte
package infra
